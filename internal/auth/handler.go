package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadswap/backend/internal/referral"
)

type Handler struct {
	db     *pgxpool.Pool
	secret []byte
	expiry time.Duration
}

func NewHandler(db *pgxpool.Pool, secret string, expiry time.Duration) *Handler {
	return &Handler{db: db, secret: []byte(secret), expiry: expiry}
}

type RegisterRequest struct {
	SchoolEmail  string `json:"schoolEmail"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	CurrentYear  string `json:"currentYear"`
	BlockSection string `json:"blockSection"`
	Course       string `json:"course"`
	PhoneNumber  string `json:"phoneNumber"`
	ReferralCode string `json:"referralCode"`
}

// Register - POST /api/auth/register
func (h *Handler) Register(c echo.Context) error {
	req := new(RegisterRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	missing := missingFields(req)
	if len(missing) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Missing required fields: " + strings.Join(missing, ", "),
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "server error"})
	}

	ctx := c.Request().Context()

	code, err := referral.GenerateCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "server error"})
	}

	var userID string
	err = h.db.QueryRow(ctx, `
        INSERT INTO users (email, password, first_name, last_name, current_year, block_section, course, phone_number, referral_code)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id::text`,
		req.SchoolEmail, string(hashed), req.FirstName, req.LastName,
		req.CurrentYear, req.BlockSection, req.Course, req.PhoneNumber, code).Scan(&userID)
	if err != nil {
		log.Printf("register %s: %v", req.SchoolEmail, err)
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Registration failed - email may already be in use"})
	}

	// Referral credit never blocks registration.
	if req.ReferralCode != "" {
		h.creditReferrer(ctx, userID, req.ReferralCode)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Registration successful! You can now login.",
		"user_id": userID,
	})
}

func missingFields(req *RegisterRequest) []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"schoolEmail", req.SchoolEmail},
		{"password", req.Password},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"currentYear", req.CurrentYear},
		{"blockSection", req.BlockSection},
		{"course", req.Course},
		{"phoneNumber", req.PhoneNumber},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (h *Handler) creditReferrer(ctx context.Context, newUserID, code string) {
	var referrerID string
	err := h.db.QueryRow(ctx,
		`SELECT id::text FROM users WHERE referral_code = $1`, code).Scan(&referrerID)
	if err != nil {
		log.Printf("referral code %q not found for new user %s: %v", code, newUserID, err)
		return
	}
	if referrerID == newUserID {
		return
	}

	if _, err := h.db.Exec(ctx, `
        INSERT INTO referrals (referrer_id, referred_id) VALUES ($1, $2)
        ON CONFLICT (referrer_id, referred_id) DO NOTHING`, referrerID, newUserID); err != nil {
		log.Printf("record referral %s -> %s: %v", referrerID, newUserID, err)
		return
	}
	if _, err := h.db.Exec(ctx, `
        UPDATE users SET total_referrals = COALESCE(total_referrals, 0) + 1 WHERE id = $1`, referrerID); err != nil {
		log.Printf("bump total_referrals for %s: %v", referrerID, err)
	}
	if _, err := h.db.Exec(ctx, `
        UPDATE users SET referred_by = $1 WHERE id = $2`, referrerID, newUserID); err != nil {
		log.Printf("set referred_by for %s: %v", newUserID, err)
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login - POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Missing email or password"})
	}

	ctx := c.Request().Context()

	var userID, hashed string
	err := h.db.QueryRow(ctx,
		`SELECT id::text, password FROM users WHERE email = $1`, req.Email).Scan(&userID, &hashed)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid credentials"})
	}

	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(h.expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "token generation failed"})
	}

	user, err := h.loadUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Login successful but user data is missing. Please try again."})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful",
		"user":    user,
		"session": echo.Map{"access_token": signed},
	})
}

// Me - GET /api/auth/me
func (h *Handler) Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	user, err := h.loadUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// User is the public profile shape shared by login and me.
type User struct {
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

func (h *Handler) loadUser(ctx context.Context, userID string) (*User, error) {
	var u User
	err := h.db.QueryRow(ctx, `
        SELECT id::text, email, first_name, last_name, course, current_year,
            block_section, phone_number, address, profile_picture,
            COALESCE(profile_completed, FALSE), COALESCE(reputation_score, 0),
            referral_code, COALESCE(total_referrals, 0)
        FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Course,
			&u.CurrentYear, &u.BlockSection, &u.PhoneNumber, &u.Address,
			&u.ProfilePicture, &u.ProfileCompleted, &u.ReputationScore,
			&u.ReferralCode, &u.TotalReferrals)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
