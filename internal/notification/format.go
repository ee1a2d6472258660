package notification

import (
	"fmt"
	"strings"
	"time"
)

// RelativeTime renders a created_at timestamp the way the notification feed
// displays it: "Just now" under a minute, then m/h/d granularity.
func RelativeTime(createdAt, now time.Time) string {
	diff := now.Sub(createdAt)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func linkFor(notifType string) string {
	switch notifType {
	case TypeOffer:
		return "/offers"
	case TypeMessage:
		return "/messages"
	case TypeMeetup:
		return "/meetup-scheduler"
	case TypeFriendRequest:
		return "/friend-requests"
	case TypeBoardPost:
		return "/request-board"
	default:
		return "#"
	}
}

// titleFor derives a short title from the message. Messages shaped
// "Title: detail" keep their prefix; everything else gets a generic title.
func titleFor(message string) string {
	if idx := strings.Index(message, ":"); idx > 0 {
		return message[:idx]
	}
	return "Notification"
}
