package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification types. Each maps to a frontend destination in linkFor.
const (
	TypeOffer         = "offer"
	TypeMessage       = "message"
	TypeMeetup        = "meetup"
	TypeFriendRequest = "friend_request"
	TypeBoardPost     = "board_post"
)

// Notify writes an in-app notification. It is best-effort: failures are
// logged and never propagated, so a dead notifications table cannot fail
// the flow that triggered it.
func Notify(ctx context.Context, db *pgxpool.Pool, userID, notifType, message string, relatedID *string) {
	_, err := db.Exec(ctx, `
        INSERT INTO notifications (user_id, type, message, related_id)
        VALUES ($1, $2, $3, $4)`, userID, notifType, message, relatedID)
	if err != nil {
		log.Printf("notify %s (%s): %v", userID, notifType, err)
	}
}

func NotifyOffer(ctx context.Context, db *pgxpool.Pool, sellerID, buyerName, itemTitle string, offerID string) {
	Notify(ctx, db, sellerID, TypeOffer,
		fmt.Sprintf("New offer from %s on %s", buyerName, itemTitle), &offerID)
}

func NotifyMessage(ctx context.Context, db *pgxpool.Pool, receiverID, senderName, messageID string) {
	Notify(ctx, db, receiverID, TypeMessage,
		fmt.Sprintf("New message from %s", senderName), &messageID)
}

func NotifyFriendRequest(ctx context.Context, db *pgxpool.Pool, receiverID, senderName, requestID string) {
	Notify(ctx, db, receiverID, TypeFriendRequest,
		fmt.Sprintf("%s sent you a friend request", senderName), &requestID)
}

func NotifyFriendAccepted(ctx context.Context, db *pgxpool.Pool, senderID, accepterName, friendshipID string) {
	Notify(ctx, db, senderID, TypeFriendRequest,
		fmt.Sprintf("%s accepted your friend request", accepterName), &friendshipID)
}
