package meetup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const meetupColumns = `id::text, item_id::text, seller_id::text, buyer_id::text,
    COALESCE(title, ''), COALESCE(scheduled_date, ''), COALESCE(scheduled_time, ''),
    COALESCE(location_name, ''), location_lat, location_lng, COALESCE(notes, ''),
    status, cancelled_at, cancellation_reason, completed_at, created_at`

// PgxStore implements Store against Postgres.
type PgxStore struct {
	db *pgxpool.Pool
}

func NewPgxStore(db *pgxpool.Pool) *PgxStore {
	return &PgxStore{db: db}
}

func scanMeetup(row pgx.Row) (*Meetup, error) {
	var m Meetup
	err := row.Scan(&m.ID, &m.ItemID, &m.SellerID, &m.BuyerID, &m.Title,
		&m.ScheduledDate, &m.ScheduledTime, &m.LocationName, &m.LocationLat,
		&m.LocationLng, &m.Notes, &m.Status, &m.CancelledAt,
		&m.CancellationReason, &m.CompletedAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PgxStore) Insert(ctx context.Context, m *Meetup) (*Meetup, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO meetups (item_id, seller_id, buyer_id, title, scheduled_date,
            scheduled_time, location_name, location_lat, location_lng, notes, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+meetupColumns,
		m.ItemID, m.SellerID, m.BuyerID, m.Title, m.ScheduledDate,
		m.ScheduledTime, m.LocationName, m.LocationLat, m.LocationLng,
		m.Notes, m.Status)
	return scanMeetup(row)
}

func (s *PgxStore) Get(ctx context.Context, id string) (*Meetup, error) {
	row := s.db.QueryRow(ctx, `SELECT `+meetupColumns+` FROM meetups WHERE id = $1`, id)
	return scanMeetup(row)
}

func (s *PgxStore) SetStatus(ctx context.Context, id, status string) (*Meetup, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE meetups SET status = $2 WHERE id = $1
        RETURNING `+meetupColumns, id, status)
	return scanMeetup(row)
}

func (s *PgxStore) MarkCancelled(ctx context.Context, id, status string, reason *string, at time.Time) (*Meetup, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE meetups SET status = $2, cancelled_at = $3, cancellation_reason = $4
        WHERE id = $1
        RETURNING `+meetupColumns, id, status, at, reason)
	return scanMeetup(row)
}

func (s *PgxStore) MarkCompleted(ctx context.Context, id string, at time.Time) (*Meetup, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE meetups SET status = $2, completed_at = $3 WHERE id = $1
        RETURNING `+meetupColumns, id, StatusCompleted, at)
	return scanMeetup(row)
}

func (s *PgxStore) Reschedule(ctx context.Context, id string, sch Schedule) (*Meetup, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE meetups SET scheduled_date = $2, scheduled_time = $3, location_name = $4,
            location_lat = $5, location_lng = $6, notes = $7, status = $8
        WHERE id = $1
        RETURNING `+meetupColumns,
		id, sch.ScheduledDate, sch.ScheduledTime, sch.LocationName,
		sch.LocationLat, sch.LocationLng, sch.Notes, StatusPending)
	return scanMeetup(row)
}

func (s *PgxStore) ReputationScore(ctx context.Context, userID string) (int, error) {
	var score int
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(reputation_score, 0) FROM users WHERE id = $1`, userID).Scan(&score)
	return score, err
}

func (s *PgxStore) SetReputationScore(ctx context.Context, userID string, score int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET reputation_score = $2 WHERE id = $1`, userID, score)
	return err
}

func (s *PgxStore) AddReputationEvent(ctx context.Context, ev ReputationEvent) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO reputation_history (user_id, meetup_id, change_amount, reason)
        VALUES ($1, $2, $3, $4)`,
		ev.UserID, ev.MeetupID, ev.ChangeAmount, ev.Reason)
	return err
}

// ListForUser returns every meetup where the user is seller or buyer, soonest
// scheduled date first.
func (s *PgxStore) ListForUser(ctx context.Context, userID string) ([]Meetup, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+meetupColumns+` FROM meetups
        WHERE seller_id = $1 OR buyer_id = $1
        ORDER BY scheduled_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetups []Meetup
	for rows.Next() {
		m, err := scanMeetup(rows)
		if err != nil {
			return nil, err
		}
		meetups = append(meetups, *m)
	}
	return meetups, rows.Err()
}

// UserSummary carries the denormalized display fields for one party.
type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// UsersByID fetches all referenced users in a single query so list rendering
// doesn't issue one lookup per row.
func (s *PgxStore) UsersByID(ctx context.Context, ids []string) (map[string]UserSummary, error) {
	users := make(map[string]UserSummary, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	rows, err := s.db.Query(ctx, `
        SELECT id::text, first_name, last_name, email FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// ItemSummary carries the item display fields for a meetup row.
type ItemSummary struct {
	ID     string
	Title  string
	Price  *float64
	Images []string
}

// ItemsByID batches the item lookups for a meetup list.
func (s *PgxStore) ItemsByID(ctx context.Context, ids []string) (map[string]ItemSummary, error) {
	items := make(map[string]ItemSummary, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	rows, err := s.db.Query(ctx, `
        SELECT id::text, title, price, images FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it ItemSummary
		var images []byte
		if err := rows.Scan(&it.ID, &it.Title, &it.Price, &images); err != nil {
			return nil, err
		}
		if len(images) > 0 {
			_ = json.Unmarshal(images, &it.Images)
		}
		items[it.ID] = it
	}
	return items, rows.Err()
}

// SearchUsers finds users by name or email fragment for buyer selection.
func (s *PgxStore) SearchUsers(ctx context.Context, query string) ([]UserSummary, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(ctx, `
        SELECT id::text, first_name, last_name, email FROM users
        WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
        LIMIT 10`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
