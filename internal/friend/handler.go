package friend

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/acadswap/backend/internal/notification"
)

type Handler struct {
	db *pgxpool.Pool
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{db: db}
}

type sendRequestInput struct {
	ReceiverID string `json:"receiver_id"`
}

// Send - POST /api/friends/request/send
func (h *Handler) Send(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	req := new(sendRequestInput)
	if err := c.Bind(req); err != nil || req.ReceiverID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "receiver_id is required"})
	}
	if req.ReceiverID == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Cannot send a friend request to yourself"})
	}
	ctx := c.Request().Context()

	// Either direction blocks a new request.
	var exists bool
	err := h.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM friendships
            WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
        )`, userID, req.ReceiverID).Scan(&exists)
	if err != nil {
		log.Printf("friend request check %s -> %s: %v", userID, req.ReceiverID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to send friend request"})
	}
	if exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Friend request already exists or you are already friends"})
	}

	requestID := uuid.New().String()
	_, err = h.db.Exec(ctx, `
        INSERT INTO friendships (id, user_id, friend_id, status)
        VALUES ($1, $2, $3, 'pending')`, requestID, userID, req.ReceiverID)
	if err != nil {
		log.Printf("create friend request %s -> %s: %v", userID, req.ReceiverID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to send friend request"})
	}

	notification.NotifyFriendRequest(ctx, h.db, req.ReceiverID, h.displayName(ctx, userID), requestID)

	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"message":    "Friend request sent successfully",
		"request_id": requestID,
	})
}

type pendingRequest struct {
	ID                   string    `json:"id"`
	SenderID             string    `json:"sender_id"`
	ReceiverID           string    `json:"receiver_id"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
	SenderFirstName      string    `json:"sender_first_name"`
	SenderLastName       string    `json:"sender_last_name"`
	SenderProfilePicture *string   `json:"sender_profile_picture"`
	SenderCourse         *string   `json:"sender_course"`
}

// Pending - GET /api/friends/requests
func (h *Handler) Pending(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	rows, err := h.db.Query(c.Request().Context(), `
        SELECT f.id::text, f.user_id::text, f.friend_id::text, f.status, f.created_at,
            u.first_name, u.last_name, u.profile_picture, u.course
        FROM friendships f
        JOIN users u ON u.id = f.user_id
        WHERE f.friend_id = $1 AND f.status = 'pending'
        ORDER BY f.created_at DESC`, userID)
	if err != nil {
		log.Printf("pending friend requests for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load friend requests"})
	}
	defer rows.Close()

	requests := []pendingRequest{}
	for rows.Next() {
		var r pendingRequest
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt,
			&r.SenderFirstName, &r.SenderLastName, &r.SenderProfilePicture, &r.SenderCourse); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load friend requests"})
		}
		requests = append(requests, r)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}

// Accept - PUT /api/friends/request/:id/accept
func (h *Handler) Accept(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	requestID := c.Param("id")
	ctx := c.Request().Context()

	var senderID, receiverID string
	err := h.db.QueryRow(ctx,
		`SELECT user_id::text, friend_id::text FROM friendships WHERE id = $1`, requestID).
		Scan(&senderID, &receiverID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Friend request not found"})
	}
	if receiverID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	}

	if _, err := h.db.Exec(ctx,
		`UPDATE friendships SET status = 'active' WHERE id = $1`, requestID); err != nil {
		log.Printf("accept friend request %s: %v", requestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to accept friend request"})
	}

	notification.NotifyFriendAccepted(ctx, h.db, senderID, h.displayName(ctx, userID), requestID)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Friend request accepted"})
}

// Reject - PUT /api/friends/request/:id/reject
func (h *Handler) Reject(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	requestID := c.Param("id")
	ctx := c.Request().Context()

	var receiverID string
	err := h.db.QueryRow(ctx,
		`SELECT friend_id::text FROM friendships WHERE id = $1`, requestID).Scan(&receiverID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Friend request not found"})
	}
	if receiverID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	}

	if _, err := h.db.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, requestID); err != nil {
		log.Printf("reject friend request %s: %v", requestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to reject friend request"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Friend request rejected"})
}

type friendEntry struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	ProfilePicture *string `json:"profile_picture"`
	Course         *string `json:"course"`
	FriendshipID   string  `json:"friendship_id"`
}

// List - GET /api/friends/list
func (h *Handler) List(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	// The other party is whichever side of the row isn't the caller.
	rows, err := h.db.Query(c.Request().Context(), `
        SELECT f.id::text, u.id::text, u.first_name, u.last_name, u.profile_picture, u.course
        FROM friendships f
        JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
        WHERE (f.user_id = $1 OR f.friend_id = $1) AND f.status = 'active'`, userID)
	if err != nil {
		log.Printf("list friends for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load friends"})
	}
	defer rows.Close()

	friends := []friendEntry{}
	for rows.Next() {
		var f friendEntry
		if err := rows.Scan(&f.FriendshipID, &f.ID, &f.FirstName, &f.LastName, &f.ProfilePicture, &f.Course); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load friends"})
		}
		friends = append(friends, f)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "friends": friends})
}

// Remove - DELETE /api/friends/remove/:friendshipId
func (h *Handler) Remove(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	friendshipID := c.Param("friendshipId")
	ctx := c.Request().Context()

	var aID, bID string
	err := h.db.QueryRow(ctx,
		`SELECT user_id::text, friend_id::text FROM friendships WHERE id = $1`, friendshipID).
		Scan(&aID, &bID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Friendship not found"})
	}
	if aID != userID && bID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	}

	if _, err := h.db.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, friendshipID); err != nil {
		log.Printf("remove friendship %s: %v", friendshipID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to remove friend"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Friend removed"})
}

// Status - GET /api/friends/status/:userId
//
// Pairwise status for the caller and another user:
// none, active, pending_sent or pending_received.
func (h *Handler) Status(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	otherID := c.Param("userId")

	var status, senderID string
	err := h.db.QueryRow(c.Request().Context(), `
        SELECT status, user_id::text FROM friendships
        WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
        LIMIT 1`, userID, otherID).Scan(&status, &senderID)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "none"})
	}

	if status == "pending" {
		if senderID == userID {
			status = "pending_sent"
		} else {
			status = "pending_received"
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "status": status})
}

func (h *Handler) displayName(ctx context.Context, userID string) string {
	var first, last string
	err := h.db.QueryRow(ctx,
		`SELECT first_name, last_name FROM users WHERE id = $1`, userID).Scan(&first, &last)
	if err != nil {
		return "Someone"
	}
	return first + " " + last
}
