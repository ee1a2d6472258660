package referral

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	db *pgxpool.Pool
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{db: db}
}

type referredUser struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Stats - GET /api/referral/stats
func (h *Handler) Stats(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	ctx := c.Request().Context()

	var (
		code       *string
		total      int
		reputation int
	)
	err := h.db.QueryRow(ctx, `
        SELECT referral_code, COALESCE(total_referrals, 0), COALESCE(reputation_score, 0)
        FROM users WHERE id = $1`, userID).Scan(&code, &total, &reputation)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found"})
	}

	// One join instead of a per-referral user lookup.
	rows, err := h.db.Query(ctx, `
        SELECT u.first_name, u.last_name, r.created_at
        FROM referrals r
        JOIN users u ON u.id = r.referred_id
        WHERE r.referrer_id = $1
        ORDER BY r.created_at DESC`, userID)
	if err != nil {
		log.Printf("referral stats query for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load referrals"})
	}
	defer rows.Close()

	referred := []referredUser{}
	for rows.Next() {
		var first, last string
		var joined time.Time
		if err := rows.Scan(&first, &last, &joined); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load referrals"})
		}
		referred = append(referred, referredUser{Name: first + " " + last, JoinedAt: joined})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":          true,
		"referral_code":    code,
		"total_referrals":  total,
		"reputation_score": reputation,
		"referred_users":   referred,
	})
}

// Validate - GET /api/referral/validate/:code
func (h *Handler) Validate(c echo.Context) error {
	code := c.Param("code")

	var exists bool
	err := h.db.QueryRow(c.Request().Context(),
		`SELECT EXISTS (SELECT 1 FROM users WHERE referral_code = $1)`, code).Scan(&exists)
	if err != nil {
		log.Printf("referral validate %q: %v", code, err)
		exists = false
	}

	message := "Invalid referral code"
	if exists {
		message = "Valid referral code"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "valid": exists, "message": message})
}

type leaderboardEntry struct {
	Rank            int    `json:"rank"`
	Name            string `json:"name"`
	TotalReferrals  int    `json:"total_referrals"`
	ReputationScore int    `json:"reputation_score"`
}

// Leaderboard - GET /api/referral/leaderboard?limit=
func (h *Handler) Leaderboard(c echo.Context) error {
	if _, ok := c.Get("user_id").(string); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.db.Query(c.Request().Context(), `
        SELECT first_name, last_name, COALESCE(total_referrals, 0), COALESCE(reputation_score, 0)
        FROM users
        WHERE COALESCE(total_referrals, 0) > 0
        ORDER BY total_referrals DESC
        LIMIT $1`, limit)
	if err != nil {
		log.Printf("referral leaderboard: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load leaderboard"})
	}
	defer rows.Close()

	leaderboard := []leaderboardEntry{}
	rank := 0
	for rows.Next() {
		var first, last string
		var total, reputation int
		if err := rows.Scan(&first, &last, &total, &reputation); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load leaderboard"})
		}
		rank++
		leaderboard = append(leaderboard, leaderboardEntry{
			Rank:            rank,
			Name:            first + " " + last,
			TotalReferrals:  total,
			ReputationScore: reputation,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "leaderboard": leaderboard})
}
