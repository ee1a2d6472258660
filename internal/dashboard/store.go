package dashboard

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// PgxSource implements Source with one query per aggregate.
type PgxSource struct {
	db *pgxpool.Pool
}

func NewPgxSource(db *pgxpool.Pool) *PgxSource {
	return &PgxSource{db: db}
}

func (s *PgxSource) User(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `
        SELECT id::text, email, first_name, last_name, course, current_year,
            block_section, phone_number, address, profile_picture,
            COALESCE(profile_completed, FALSE), COALESCE(reputation_score, 0),
            referral_code, COALESCE(total_referrals, 0)
        FROM users WHERE id = $1`, userID).
		Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Course,
			&p.CurrentYear, &p.BlockSection, &p.PhoneNumber, &p.Address,
			&p.ProfilePicture, &p.ProfileCompleted, &p.ReputationScore,
			&p.ReferralCode, &p.TotalReferrals)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PgxSource) CountActiveItems(ctx context.Context, sellerID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE seller_id = $1 AND status = 'active'`, sellerID).Scan(&n)
	return n, err
}

func (s *PgxSource) CountCompletedMeetups(ctx context.Context, userID string, asSeller bool) (int, error) {
	column := "buyer_id"
	if asSeller {
		column = "seller_id"
	}
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM meetups WHERE `+column+` = $1 AND status = 'completed'`, userID).Scan(&n)
	return n, err
}

// CompletedSalePrices joins completed seller meetups onto their items in one
// query. Meetups whose item is gone or unpriced yield a nil price.
func (s *PgxSource) CompletedSalePrices(ctx context.Context, sellerID string) ([]*float64, error) {
	rows, err := s.db.Query(ctx, `
        SELECT i.price::float8
        FROM meetups m
        LEFT JOIN items i ON i.id = m.item_id
        WHERE m.seller_id = $1 AND m.status = 'completed'`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []*float64
	for rows.Next() {
		var p *float64
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (s *PgxSource) RequestIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id::text FROM requests WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PgxSource) CountRequestLikes(ctx context.Context, requestIDs []string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM request_likes WHERE request_id = ANY($1)`, requestIDs).Scan(&n)
	return n, err
}

func (s *PgxSource) ItemViewTotal(ctx context.Context, sellerID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(view_count), 0) FROM items WHERE seller_id = $1`, sellerID).Scan(&n)
	return n, err
}
