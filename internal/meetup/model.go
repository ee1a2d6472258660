package meetup

import "time"

// Meetup statuses. A meetup starts pending and moves through the lifecycle
// handlers; cancel marks a status, it never deletes the row.
const (
	StatusPending           = "pending"
	StatusConfirmed         = "confirmed"
	StatusCompleted         = "completed"
	StatusCancelledBySeller = "cancelled_by_seller"
	StatusCancelledByBuyer  = "cancelled_by_buyer"
)

// Reputation deltas applied as lifecycle side effects.
const (
	SellerCancelPenalty = -3
	BuyerCancelPenalty  = -1
	CompletionReward    = 5
)

// Meetup represents a scheduled physical exchange between a seller and a
// buyer for one item.
type Meetup struct {
	ID                 string     `json:"id"`
	ItemID             *string    `json:"item_id"`
	SellerID           string     `json:"seller_id"`
	BuyerID            string     `json:"buyer_id"`
	Title              string     `json:"title"`
	ScheduledDate      string     `json:"scheduled_date"`
	ScheduledTime      string     `json:"scheduled_time"`
	LocationName       string     `json:"location_name"`
	LocationLat        *float64   `json:"location_lat"`
	LocationLng        *float64   `json:"location_lng"`
	Notes              string     `json:"notes"`
	Status             string     `json:"status"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Schedule carries the fields a reschedule overwrites.
type Schedule struct {
	ScheduledDate string   `json:"scheduled_date"`
	ScheduledTime string   `json:"scheduled_time"`
	LocationName  string   `json:"location_name"`
	LocationLat   *float64 `json:"location_lat"`
	LocationLng   *float64 `json:"location_lng"`
	Notes         string   `json:"notes"`
}

// CreateInput is the payload for scheduling a new meetup.
type CreateInput struct {
	ItemID        *string  `json:"item_id"`
	BuyerID       string   `json:"buyer_id"`
	Title         string   `json:"title"`
	ScheduledDate string   `json:"scheduled_date"`
	ScheduledTime string   `json:"scheduled_time"`
	LocationName  string   `json:"location_name"`
	LocationLat   *float64 `json:"location_lat"`
	LocationLng   *float64 `json:"location_lng"`
	Notes         string   `json:"notes"`
}

// ReputationEvent is an append-only record of a reputation delta applied to
// a user as a lifecycle side effect.
type ReputationEvent struct {
	UserID       string
	MeetupID     string
	ChangeAmount int
	Reason       string
}

// View is a meetup decorated with the display fields the client renders:
// counterpart names and the item summary.
type View struct {
	Meetup
	SellerFirstName string   `json:"seller_first_name"`
	SellerLastName  string   `json:"seller_last_name"`
	SellerEmail     string   `json:"seller_email"`
	BuyerFirstName  string   `json:"buyer_first_name"`
	BuyerLastName   string   `json:"buyer_last_name"`
	BuyerEmail      string   `json:"buyer_email"`
	ItemTitle       string   `json:"item_title"`
	ItemPrice       *float64 `json:"item_price,omitempty"`
	ItemImages      []string `json:"item_images"`
}
