package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{59 * time.Second, "Just now"},
		{time.Minute, "1m ago"},
		{45 * time.Minute, "45m ago"},
		{time.Hour, "1h ago"},
		{23*time.Hour + 30*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RelativeTime(now.Add(-tc.age), now), "age %s", tc.age)
	}
}

func TestLinkFor(t *testing.T) {
	assert.Equal(t, "/offers", linkFor(TypeOffer))
	assert.Equal(t, "/messages", linkFor(TypeMessage))
	assert.Equal(t, "/meetup-scheduler", linkFor(TypeMeetup))
	assert.Equal(t, "/friend-requests", linkFor(TypeFriendRequest))
	assert.Equal(t, "/request-board", linkFor(TypeBoardPost))
	assert.Equal(t, "#", linkFor("something-else"))
}

func TestTitleFor(t *testing.T) {
	assert.Equal(t, "New post", titleFor("New post: Calc textbook wanted"))
	assert.Equal(t, "Notification", titleFor("New offer from Ana Cruz on Calc textbook"))
}
