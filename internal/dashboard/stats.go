package dashboard

import (
	"context"
	"log"
	"math"
)

// engagement scoring weights: 200 points represents 100% engagement.
const (
	pointsPerDeal     = 10
	pointsPerPost     = 5
	likesPerPoint     = 4
	viewsPerPoint     = 10
	maxPossiblePoints = 200.0
)

// Stats is the derived, never-persisted dashboard projection.
type Stats struct {
	ActiveListings int     `json:"active_listings"`
	TotalSales     int     `json:"total_sales"`
	TotalEarnings  float64 `json:"total_earnings"`
	EngagementRate float64 `json:"engagement_rate"`
}

// Profile is the user record returned alongside the stats.
type Profile struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Course           *string `json:"course"`
	CurrentYear      *string `json:"current_year"`
	BlockSection     *string `json:"block_section"`
	PhoneNumber      *string `json:"phone_number"`
	Address          *string `json:"address"`
	ProfilePicture   *string `json:"profile_picture"`
	ProfileCompleted bool    `json:"profile_completed"`
	ReputationScore  int     `json:"reputation_score"`
	ReferralCode     *string `json:"referral_code"`
	TotalReferrals   int     `json:"total_referrals"`
}

// Source is the read capability the aggregator folds over. Every method maps
// to a single query; the pgx implementation is in store.go.
type Source interface {
	User(ctx context.Context, userID string) (*Profile, error)
	CountActiveItems(ctx context.Context, sellerID string) (int, error)
	CountCompletedMeetups(ctx context.Context, userID string, asSeller bool) (int, error)
	CompletedSalePrices(ctx context.Context, sellerID string) ([]*float64, error)
	RequestIDs(ctx context.Context, userID string) ([]string, error)
	CountRequestLikes(ctx context.Context, requestIDs []string) (int, error)
	ItemViewTotal(ctx context.Context, sellerID string) (int, error)
}

// Aggregator computes a user's dashboard statistics at read time. Nothing is
// cached; every request recomputes from the underlying collections.
type Aggregator struct {
	src Source
}

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Dashboard loads the base profile and folds the aggregate reads into one
// Stats record. The base profile, listing/meetup counts and post count are
// essential and fail the whole request; earnings, likes and views are
// best-effort and contribute zero when their query fails.
func (a *Aggregator) Dashboard(ctx context.Context, userID string) (*Profile, *Stats, error) {
	user, err := a.src.User(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	active, err := a.src.CountActiveItems(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sales, err := a.src.CountCompletedMeetups(ctx, userID, true)
	if err != nil {
		return nil, nil, err
	}
	boughtDeals, err := a.src.CountCompletedMeetups(ctx, userID, false)
	if err != nil {
		return nil, nil, err
	}

	var earnings float64
	prices, err := a.src.CompletedSalePrices(ctx, userID)
	if err != nil {
		log.Printf("dashboard: earnings query for %s: %v", userID, err)
	} else {
		for _, p := range prices {
			if p != nil {
				earnings += *p
			}
		}
	}

	postIDs, err := a.src.RequestIDs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	likes := 0
	if len(postIDs) > 0 {
		likes, err = a.src.CountRequestLikes(ctx, postIDs)
		if err != nil {
			log.Printf("dashboard: like count for %s: %v", userID, err)
			likes = 0
		}
	}

	views, err := a.src.ItemViewTotal(ctx, userID)
	if err != nil {
		log.Printf("dashboard: view total for %s: %v", userID, err)
		views = 0
	}

	stats := &Stats{
		ActiveListings: active,
		TotalSales:     sales,
		TotalEarnings:  earnings,
		EngagementRate: EngagementRate(sales+boughtDeals, likes, len(postIDs), views),
	}
	return user, stats, nil
}

// EngagementRate maps weighted activity points onto a 0-100 percentage,
// capped at 100 and rounded to one decimal place.
func EngagementRate(completedDeals, likes, posts, views int) float64 {
	points := float64(completedDeals*pointsPerDeal) +
		float64(likes)/likesPerPoint +
		float64(posts*pointsPerPost) +
		float64(views)/viewsPerPoint

	rate := points / maxPossiblePoints * 100.0
	if rate > 100.0 {
		rate = 100.0
	}
	return math.Round(rate*10) / 10
}
