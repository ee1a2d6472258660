package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	user        *Profile
	userErr     error
	activeItems int
	sellerDeals int
	buyerDeals  int
	prices      []*float64
	pricesErr   error
	requestIDs  []string
	likes       int
	likesErr    error
	views       int
	viewsErr    error
}

func (f *fakeSource) User(context.Context, string) (*Profile, error) {
	return f.user, f.userErr
}

func (f *fakeSource) CountActiveItems(context.Context, string) (int, error) {
	return f.activeItems, nil
}

func (f *fakeSource) CountCompletedMeetups(_ context.Context, _ string, asSeller bool) (int, error) {
	if asSeller {
		return f.sellerDeals, nil
	}
	return f.buyerDeals, nil
}

func (f *fakeSource) CompletedSalePrices(context.Context, string) ([]*float64, error) {
	return f.prices, f.pricesErr
}

func (f *fakeSource) RequestIDs(context.Context, string) ([]string, error) {
	return f.requestIDs, nil
}

func (f *fakeSource) CountRequestLikes(context.Context, []string) (int, error) {
	return f.likes, f.likesErr
}

func (f *fakeSource) ItemViewTotal(context.Context, string) (int, error) {
	return f.views, f.viewsErr
}

func price(v float64) *float64 { return &v }

func baseSource() *fakeSource {
	return &fakeSource{user: &Profile{ID: "user-1", Email: "u@campus.edu"}}
}

func TestEngagementRateFormula(t *testing.T) {
	// 2 deals, 8 likes, 3 posts, 50 views:
	// 20 + 2 + 15 + 5 = 42 points -> 21.0%
	assert.Equal(t, 21.0, EngagementRate(2, 8, 3, 50))
}

func TestEngagementRateCapsAtHundred(t *testing.T) {
	assert.Equal(t, 100.0, EngagementRate(50, 0, 0, 0))
}

func TestEngagementRateRounding(t *testing.T) {
	// 1 like = 0.25 points -> 0.125% rounds to 0.1
	assert.Equal(t, 0.1, EngagementRate(0, 1, 0, 0))
}

func TestDashboardStats(t *testing.T) {
	src := baseSource()
	src.activeItems = 4
	src.sellerDeals = 1
	src.buyerDeals = 1
	src.prices = []*float64{price(150)}
	src.requestIDs = []string{"r1", "r2", "r3"}
	src.likes = 8
	src.views = 50

	agg := NewAggregator(src)
	user, stats, err := agg.Dashboard(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, 4, stats.ActiveListings)
	assert.Equal(t, 1, stats.TotalSales)
	assert.Equal(t, 150.0, stats.TotalEarnings)
	assert.Equal(t, 21.0, stats.EngagementRate)
}

func TestEarningsSkipNullPrices(t *testing.T) {
	src := baseSource()
	src.sellerDeals = 3
	src.prices = []*float64{price(100), nil, price(25.5)}

	agg := NewAggregator(src)
	_, stats, err := agg.Dashboard(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, 125.5, stats.TotalEarnings, "null prices contribute zero, not an error")
	assert.Equal(t, 3, stats.TotalSales)
}

func TestNonEssentialFailuresContributeZero(t *testing.T) {
	src := baseSource()
	src.sellerDeals = 2
	src.requestIDs = []string{"r1"}
	src.pricesErr = errors.New("items unavailable")
	src.likesErr = errors.New("likes unavailable")
	src.viewsErr = errors.New("views unavailable")

	agg := NewAggregator(src)
	_, stats, err := agg.Dashboard(context.Background(), "user-1")
	assert.NoError(t, err, "earnings/likes/views failures must not fail the dashboard")
	assert.Equal(t, 0.0, stats.TotalEarnings)
	// 2 deals * 10 + 1 post * 5 = 25 points -> 12.5%
	assert.Equal(t, 12.5, stats.EngagementRate)
}

func TestBaseUserFailureIsFatal(t *testing.T) {
	src := baseSource()
	src.user = nil
	src.userErr = ErrUserNotFound

	agg := NewAggregator(src)
	_, _, err := agg.Dashboard(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
