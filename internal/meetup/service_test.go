package meetup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeStore is an in-memory Store so the lifecycle can be exercised without
// Postgres.
type fakeStore struct {
	meetups  map[string]*Meetup
	scores   map[string]int
	history  []ReputationEvent
	scoreErr error
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		meetups: map[string]*Meetup{},
		scores:  map[string]int{},
	}
}

func (f *fakeStore) Insert(_ context.Context, m *Meetup) (*Meetup, error) {
	f.nextID++
	cp := *m
	cp.ID = fmt.Sprintf("meetup-%d", f.nextID)
	cp.CreatedAt = time.Now()
	f.meetups[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Meetup, error) {
	m, ok := f.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id, status string) (*Meetup, error) {
	m, ok := f.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Status = status
	cp := *m
	return &cp, nil
}

func (f *fakeStore) MarkCancelled(_ context.Context, id, status string, reason *string, at time.Time) (*Meetup, error) {
	m, ok := f.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Status = status
	m.CancelledAt = &at
	m.CancellationReason = reason
	cp := *m
	return &cp, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id string, at time.Time) (*Meetup, error) {
	m, ok := f.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Status = StatusCompleted
	m.CompletedAt = &at
	cp := *m
	return &cp, nil
}

func (f *fakeStore) Reschedule(_ context.Context, id string, s Schedule) (*Meetup, error) {
	m, ok := f.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.ScheduledDate = s.ScheduledDate
	m.ScheduledTime = s.ScheduledTime
	m.LocationName = s.LocationName
	m.LocationLat = s.LocationLat
	m.LocationLng = s.LocationLng
	m.Notes = s.Notes
	m.Status = StatusPending
	cp := *m
	return &cp, nil
}

func (f *fakeStore) ReputationScore(_ context.Context, userID string) (int, error) {
	if f.scoreErr != nil {
		return 0, f.scoreErr
	}
	return f.scores[userID], nil
}

func (f *fakeStore) SetReputationScore(_ context.Context, userID string, score int) error {
	if f.scoreErr != nil {
		return f.scoreErr
	}
	f.scores[userID] = score
	return nil
}

func (f *fakeStore) AddReputationEvent(_ context.Context, ev ReputationEvent) error {
	f.history = append(f.history, ev)
	return nil
}

func historyFor(f *fakeStore, userID string) []ReputationEvent {
	var out []ReputationEvent
	for _, ev := range f.history {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out
}

func newPendingMeetup(t *testing.T, l *Lifecycle, sellerID, buyerID string) *Meetup {
	t.Helper()
	m, err := l.Create(context.Background(), sellerID, CreateInput{
		BuyerID:       buyerID,
		Title:         "Calc textbook handoff",
		ScheduledDate: "2025-11-03",
		ScheduledTime: "15:30",
		LocationName:  "Main library steps",
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, m.Status)
	return m
}

func TestCreateForcesPendingStatus(t *testing.T) {
	store := newFakeStore()
	l := NewLifecycle(store)

	m := newPendingMeetup(t, l, "seller-1", "buyer-1")
	assert.Equal(t, "seller-1", m.SellerID)
	assert.Equal(t, "buyer-1", m.BuyerID)
	assert.Equal(t, StatusPending, store.meetups[m.ID].Status)
}

func TestCompleteOnlyFromConfirmed(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{StatusPending, StatusCompleted, StatusCancelledBySeller, StatusCancelledByBuyer} {
		store := newFakeStore()
		l := NewLifecycle(store)
		m := newPendingMeetup(t, l, "seller-1", "buyer-1")
		store.meetups[m.ID].Status = status

		_, err := l.Complete(ctx, "buyer-1", m.ID)
		assert.ErrorIs(t, err, ErrNotConfirmed, "status %s must reject complete", status)
		assert.Equal(t, status, store.meetups[m.ID].Status)
		assert.Empty(t, store.history)
	}
}

func TestAcceptAndDeclineRequireBuyer(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	_, err := l.Accept(ctx, "seller-1", m.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = l.Accept(ctx, "somebody-else", m.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = l.Decline(ctx, "somebody-else", m.ID, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, StatusPending, store.meetups[m.ID].Status)
}

func TestAcceptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	first, err := l.Accept(ctx, "buyer-1", m.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, first.Status)

	second, err := l.Accept(ctx, "buyer-1", m.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, second.Status)
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	_, err := l.Cancel(ctx, "stranger", m.ID, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = l.Cancel(ctx, "buyer-1", "no-such-meetup", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSellerCancelAppliesPenalty(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.scores["seller-1"] = 5
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	reason := "changed mind"
	updated, err := l.Cancel(ctx, "seller-1", m.ID, &reason)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelledBySeller, updated.Status)
	assert.NotNil(t, updated.CancelledAt)
	assert.Equal(t, &reason, updated.CancellationReason)

	assert.Equal(t, 2, store.scores["seller-1"])
	events := historyFor(store, "seller-1")
	assert.Len(t, events, 1)
	assert.Equal(t, -3, events[0].ChangeAmount)
	assert.Equal(t, "Meetup cancelled by seller", events[0].Reason)
}

func TestPenaltyFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.scores["seller-1"] = 1
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	_, err := l.Cancel(ctx, "seller-1", m.ID, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, store.scores["seller-1"], "score must never go below zero")
}

func TestBuyerDeclinePenalty(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.scores["buyer-1"] = 4
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	reason := "found it cheaper"
	updated, err := l.Decline(ctx, "buyer-1", m.ID, &reason)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelledByBuyer, updated.Status)

	assert.Equal(t, 3, store.scores["buyer-1"])
	events := historyFor(store, "buyer-1")
	assert.Len(t, events, 1)
	assert.Equal(t, -1, events[0].ChangeAmount)
	assert.Equal(t, "Meetup cancelled by buyer", events[0].Reason)
}

func TestCompleteRewardsBothParties(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.scores["seller-1"] = 2
	store.scores["buyer-1"] = 0
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	_, err := l.Accept(ctx, "buyer-1", m.ID)
	assert.NoError(t, err)

	updated, err := l.Complete(ctx, "buyer-1", m.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	assert.Equal(t, 7, store.scores["seller-1"])
	assert.Equal(t, 5, store.scores["buyer-1"])

	sellerEvents := historyFor(store, "seller-1")
	buyerEvents := historyFor(store, "buyer-1")
	assert.Len(t, sellerEvents, 1)
	assert.Len(t, buyerEvents, 1)
	assert.Equal(t, 5, sellerEvents[0].ChangeAmount)
	assert.Equal(t, "Transaction completed as seller", sellerEvents[0].Reason)
	assert.Equal(t, 5, buyerEvents[0].ChangeAmount)
	assert.Equal(t, "Transaction completed as buyer", buyerEvents[0].Reason)
}

func TestRescheduleResetsToPendingFromAnyState(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{StatusPending, StatusConfirmed, StatusCancelledByBuyer, StatusCancelledBySeller} {
		store := newFakeStore()
		l := NewLifecycle(store)
		m := newPendingMeetup(t, l, "seller-1", "buyer-1")
		store.meetups[m.ID].Status = status

		updated, err := l.Reschedule(ctx, "seller-1", m.ID, Schedule{
			ScheduledDate: "2025-11-10",
			ScheduledTime: "10:00",
			LocationName:  "Student center",
		})
		assert.NoError(t, err)
		assert.Equal(t, StatusPending, updated.Status, "reschedule from %s must reset to pending", status)
		assert.Equal(t, "2025-11-10", updated.ScheduledDate)
	}
}

func TestRescheduleRequiresSeller(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")

	_, err := l.Reschedule(ctx, "buyer-1", m.ID, Schedule{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReputationFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l := NewLifecycle(store)
	m := newPendingMeetup(t, l, "seller-1", "buyer-1")
	store.scoreErr = errors.New("users table unavailable")

	updated, err := l.Cancel(ctx, "seller-1", m.ID, nil)
	assert.NoError(t, err, "a failed reputation write must not fail the cancellation")
	assert.Equal(t, StatusCancelledBySeller, updated.Status)
	assert.Empty(t, store.history)
}
