package offer

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/acadswap/backend/internal/notification"
)

type sendMessageInput struct {
	ReceiverID string  `json:"receiver_id"`
	Message    string  `json:"message"`
	ItemID     *string `json:"item_id"`
	OfferID    *string `json:"offer_id"`
}

// SendMessage - POST /api/offers/message/send
func (h *Handler) SendMessage(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	req := new(sendMessageInput)
	if err := c.Bind(req); err != nil || req.ReceiverID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "receiver_id and message are required"})
	}
	ctx := c.Request().Context()

	messageID := uuid.New().String()
	_, err := h.db.Exec(ctx, `
        INSERT INTO messages (id, sender_id, receiver_id, message, item_id, offer_id)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		messageID, userID, req.ReceiverID, req.Message, req.ItemID, req.OfferID)
	if err != nil {
		log.Printf("send message %s -> %s: %v", userID, req.ReceiverID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to send message"})
	}

	notification.NotifyMessage(ctx, h.db, req.ReceiverID, h.displayName(ctx, userID), messageID)

	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"message":    "Message sent successfully",
		"message_id": messageID,
	})
}

type conversation struct {
	OtherUserID     string    `json:"other_user_id"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ProfilePicture  *string   `json:"profile_picture"`
	UnreadCount     int       `json:"unread_count"`
}

// Conversations - GET /api/offers/conversations
//
// One row per counterpart: latest message via DISTINCT ON, partner details
// and unread counts joined in, newest conversation first.
func (h *Handler) Conversations(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	rows, err := h.db.Query(c.Request().Context(), `
        WITH latest AS (
            SELECT DISTINCT ON (other_id) other_id, message, created_at
            FROM (
                SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id,
                    message, created_at
                FROM messages
                WHERE sender_id = $1 OR receiver_id = $1
            ) m
            ORDER BY other_id, created_at DESC
        )
        SELECT l.other_id::text, l.message, l.created_at,
            u.first_name, u.last_name, u.profile_picture,
            (SELECT COUNT(*) FROM messages
             WHERE sender_id = l.other_id AND receiver_id = $1 AND is_read = FALSE)
        FROM latest l
        JOIN users u ON u.id = l.other_id
        ORDER BY l.created_at DESC`, userID)
	if err != nil {
		log.Printf("conversations for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load conversations"})
	}
	defer rows.Close()

	conversations := []conversation{}
	for rows.Next() {
		var conv conversation
		if err := rows.Scan(&conv.OtherUserID, &conv.LastMessage, &conv.LastMessageTime,
			&conv.FirstName, &conv.LastName, &conv.ProfilePicture, &conv.UnreadCount); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load conversations"})
		}
		conversations = append(conversations, conv)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "conversations": conversations})
}

type message struct {
	ID                   string    `json:"id"`
	SenderID             string    `json:"sender_id"`
	ReceiverID           string    `json:"receiver_id"`
	Message              string    `json:"message"`
	ItemID               *string   `json:"item_id"`
	OfferID              *string   `json:"offer_id"`
	IsRead               bool      `json:"is_read"`
	CreatedAt            time.Time `json:"created_at"`
	SenderFirstName      *string   `json:"sender_first_name"`
	SenderLastName       *string   `json:"sender_last_name"`
	SenderProfilePicture *string   `json:"sender_profile_picture"`
}

// Thread - GET /api/offers/messages/:userId
//
// Full history with one user, oldest first. Fetching the thread marks the
// incoming half read.
func (h *Handler) Thread(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	otherID := c.Param("userId")
	ctx := c.Request().Context()

	rows, err := h.db.Query(ctx, `
        SELECT m.id::text, m.sender_id::text, m.receiver_id::text, m.message,
            m.item_id::text, m.offer_id::text, m.is_read, m.created_at,
            u.first_name, u.last_name, u.profile_picture
        FROM messages m
        LEFT JOIN users u ON u.id = m.sender_id
        WHERE (m.sender_id = $1 AND m.receiver_id = $2)
           OR (m.sender_id = $2 AND m.receiver_id = $1)
        ORDER BY m.created_at ASC`, userID, otherID)
	if err != nil {
		log.Printf("thread %s <-> %s: %v", userID, otherID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load messages"})
	}
	defer rows.Close()

	messages := []message{}
	for rows.Next() {
		var m message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message,
			&m.ItemID, &m.OfferID, &m.IsRead, &m.CreatedAt,
			&m.SenderFirstName, &m.SenderLastName, &m.SenderProfilePicture); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load messages"})
		}
		messages = append(messages, m)
	}
	rows.Close()

	if _, err := h.db.Exec(ctx, `
        UPDATE messages SET is_read = TRUE
        WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE`, otherID, userID); err != nil {
		log.Printf("mark thread read %s <- %s: %v", userID, otherID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "messages": messages})
}

// UnreadCount - GET /api/offers/unread-count
func (h *Handler) UnreadCount(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	var count int
	err := h.db.QueryRow(c.Request().Context(),
		`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = FALSE`, userID).Scan(&count)
	if err != nil {
		log.Printf("unread count for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load unread count"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "unread_count": count})
}
