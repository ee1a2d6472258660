package meetup

import (
	"context"
	"errors"
	"log"
	"time"
)

var (
	ErrNotFound     = errors.New("meetup not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotConfirmed = errors.New("meetup must be confirmed first")
)

// Store is the persistence capability the lifecycle needs: load and mutate
// meetup rows plus the two reputation writes. The pgx implementation lives in
// store.go; tests supply an in-memory fake.
type Store interface {
	Insert(ctx context.Context, m *Meetup) (*Meetup, error)
	Get(ctx context.Context, id string) (*Meetup, error)
	SetStatus(ctx context.Context, id, status string) (*Meetup, error)
	MarkCancelled(ctx context.Context, id, status string, reason *string, at time.Time) (*Meetup, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (*Meetup, error)
	Reschedule(ctx context.Context, id string, s Schedule) (*Meetup, error)

	ReputationScore(ctx context.Context, userID string) (int, error)
	SetReputationScore(ctx context.Context, userID string, score int) error
	AddReputationEvent(ctx context.Context, ev ReputationEvent) error
}

// Lifecycle owns the meetup state machine and its reputation side effects.
// Status transitions are the primary write; reputation adjustments are a
// second, best-effort write that never rolls back the transition.
type Lifecycle struct {
	store Store
	now   func() time.Time
}

func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store, now: time.Now}
}

// Create inserts a new meetup owned by sellerID, status forced to pending.
func (l *Lifecycle) Create(ctx context.Context, sellerID string, in CreateInput) (*Meetup, error) {
	m := &Meetup{
		ItemID:        in.ItemID,
		SellerID:      sellerID,
		BuyerID:       in.BuyerID,
		Title:         in.Title,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		LocationName:  in.LocationName,
		LocationLat:   in.LocationLat,
		LocationLng:   in.LocationLng,
		Notes:         in.Notes,
		Status:        StatusPending,
	}
	return l.store.Insert(ctx, m)
}

// Accept moves a meetup to confirmed. Only the buyer may accept; accepting an
// already confirmed meetup re-writes the same status.
func (l *Lifecycle) Accept(ctx context.Context, buyerID, meetupID string) (*Meetup, error) {
	m, err := l.store.Get(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	if m.BuyerID != buyerID {
		return nil, ErrUnauthorized
	}
	return l.store.SetStatus(ctx, meetupID, StatusConfirmed)
}

// Decline cancels a pending meetup on the buyer's behalf and applies the
// buyer penalty.
func (l *Lifecycle) Decline(ctx context.Context, buyerID, meetupID string, reason *string) (*Meetup, error) {
	m, err := l.store.Get(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	if m.BuyerID != buyerID {
		return nil, ErrUnauthorized
	}
	updated, err := l.store.MarkCancelled(ctx, meetupID, StatusCancelledByBuyer, reason, l.now())
	if err != nil {
		return nil, err
	}
	l.applyPenalty(ctx, buyerID, meetupID, "buyer")
	return updated, nil
}

// Complete marks a confirmed meetup as done and rewards both parties. Only
// the buyer may complete, and only from the confirmed state.
func (l *Lifecycle) Complete(ctx context.Context, buyerID, meetupID string) (*Meetup, error) {
	m, err := l.store.Get(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	if m.BuyerID != buyerID {
		return nil, ErrUnauthorized
	}
	if m.Status != StatusConfirmed {
		return nil, ErrNotConfirmed
	}
	updated, err := l.store.MarkCompleted(ctx, meetupID, l.now())
	if err != nil {
		return nil, err
	}
	l.applyReward(ctx, m.SellerID, buyerID, meetupID)
	return updated, nil
}

// Cancel lets either party cancel; the resulting status records who did it
// and that party takes the penalty.
func (l *Lifecycle) Cancel(ctx context.Context, userID, meetupID string, reason *string) (*Meetup, error) {
	m, err := l.store.Get(ctx, meetupID)
	if err != nil {
		return nil, err
	}

	var status, role string
	switch userID {
	case m.SellerID:
		status, role = StatusCancelledBySeller, "seller"
	case m.BuyerID:
		status, role = StatusCancelledByBuyer, "buyer"
	default:
		return nil, ErrUnauthorized
	}

	updated, err := l.store.MarkCancelled(ctx, meetupID, status, reason, l.now())
	if err != nil {
		return nil, err
	}
	l.applyPenalty(ctx, userID, meetupID, role)
	return updated, nil
}

// Reschedule overwrites the schedule and forces the status back to pending,
// whatever it was before. Only the seller may reschedule.
func (l *Lifecycle) Reschedule(ctx context.Context, sellerID, meetupID string, s Schedule) (*Meetup, error) {
	m, err := l.store.Get(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	if m.SellerID != sellerID {
		return nil, ErrUnauthorized
	}
	return l.store.Reschedule(ctx, meetupID, s)
}

// applyPenalty lowers the canceller's reputation, floored at zero, and logs
// the change to reputation_history. Failures are logged and swallowed; the
// cancellation itself already succeeded.
func (l *Lifecycle) applyPenalty(ctx context.Context, userID, meetupID, role string) {
	delta := BuyerCancelPenalty
	reason := "Meetup cancelled by buyer"
	if role == "seller" {
		delta = SellerCancelPenalty
		reason = "Meetup cancelled by seller"
	}

	score, err := l.store.ReputationScore(ctx, userID)
	if err != nil {
		log.Printf("cancellation penalty: load score for %s: %v", userID, err)
		return
	}
	newScore := score + delta
	if newScore < 0 {
		newScore = 0
	}
	if err := l.store.SetReputationScore(ctx, userID, newScore); err != nil {
		log.Printf("cancellation penalty: update score for %s: %v", userID, err)
		return
	}
	if err := l.store.AddReputationEvent(ctx, ReputationEvent{
		UserID:       userID,
		MeetupID:     meetupID,
		ChangeAmount: delta,
		Reason:       reason,
	}); err != nil {
		log.Printf("cancellation penalty: record history for %s: %v", userID, err)
	}
}

// applyReward credits both parties of a completed meetup. Rewards are not
// floor-clamped; only penalties are.
func (l *Lifecycle) applyReward(ctx context.Context, sellerID, buyerID, meetupID string) {
	rewards := []struct {
		userID string
		reason string
	}{
		{sellerID, "Transaction completed as seller"},
		{buyerID, "Transaction completed as buyer"},
	}

	for _, r := range rewards {
		score, err := l.store.ReputationScore(ctx, r.userID)
		if err != nil {
			log.Printf("completion reward: load score for %s: %v", r.userID, err)
			continue
		}
		if err := l.store.SetReputationScore(ctx, r.userID, score+CompletionReward); err != nil {
			log.Printf("completion reward: update score for %s: %v", r.userID, err)
			continue
		}
		if err := l.store.AddReputationEvent(ctx, ReputationEvent{
			UserID:       r.userID,
			MeetupID:     meetupID,
			ChangeAmount: CompletionReward,
			Reason:       r.reason,
		}); err != nil {
			log.Printf("completion reward: record history for %s: %v", r.userID, err)
		}
	}
}
