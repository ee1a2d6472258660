package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{db: db, now: time.Now}
}

type feedItem struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Time    string `json:"time"`
	Read    bool   `json:"read"`
	Link    string `json:"link"`
}

// List - GET /api/notifications
func (h *Handler) List(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	rows, err := h.db.Query(c.Request().Context(), `
        SELECT id::text, type, message, is_read, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT 50`, userID)
	if err != nil {
		log.Printf("list notifications for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load notifications"})
	}
	defer rows.Close()

	now := h.now()
	notifications := []feedItem{}
	for rows.Next() {
		var (
			id, notifType, message string
			isRead                 bool
			createdAt              time.Time
		)
		if err := rows.Scan(&id, &notifType, &message, &isRead, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load notifications"})
		}
		notifications = append(notifications, feedItem{
			ID:      id,
			Type:    notifType,
			Title:   titleFor(message),
			Message: message,
			Time:    RelativeTime(createdAt, now),
			Read:    isRead,
			Link:    linkFor(notifType),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "notifications": notifications})
}

// MarkRead - PUT /api/notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	_, err := h.db.Exec(c.Request().Context(), `
        UPDATE notifications SET is_read = TRUE, read_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND user_id = $2`, c.Param("id"), userID)
	if err != nil {
		log.Printf("mark notification read: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update notification"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Notification marked as read"})
}

// MarkAllRead - PUT /api/notifications/mark-read
func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	_, err := h.db.Exec(c.Request().Context(), `
        UPDATE notifications SET is_read = TRUE, read_at = CURRENT_TIMESTAMP
        WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		log.Printf("mark all notifications read: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "All notifications marked as read"})
}
