package board

import (
	"log"
	"net/http"
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

type request struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Subcategory *string   `json:"subcategory"`
	Budget      *float64  `json:"budget"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ReplyCount  int       `json:"reply_count"`
	LikeCount   int       `json:"like_count"`
	UserLiked   bool      `json:"user_liked"`
}

// List - GET /board/requests
//
// Active requests newest first with reply/like counts and the caller's
// liked flag. The counts come from three grouped queries over the listed
// request ids, not one round-trip per request.
func (h *Handler) List(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	ctx := c.Request().Context()

	rows, err := h.db.Query(ctx, `
        SELECT id::text, user_id::text, title, description, category, subcategory,
            budget::float8, status, created_at
        FROM requests
        WHERE status = 'active'
        ORDER BY created_at DESC
        LIMIT 100`)
	if err != nil {
		log.Printf("board list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load board"})
	}
	defer rows.Close()

	requests := []*request{}
	var ids []string
	for rows.Next() {
		var r request
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.Category,
			&r.Subcategory, &r.Budget, &r.Status, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load board"})
		}
		requests = append(requests, &r)
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load board"})
	}

	if len(ids) > 0 {
		replyCounts := h.countsByRequest(c, `SELECT request_id::text, COUNT(*) FROM request_replies WHERE request_id = ANY($1) GROUP BY request_id`, ids)
		likeCounts := h.countsByRequest(c, `SELECT request_id::text, COUNT(*) FROM request_likes WHERE request_id = ANY($1) GROUP BY request_id`, ids)
		liked := map[string]bool{}
		if userID != "" {
			liked = h.likedByUser(c, ids, userID)
		}
		for _, r := range requests {
			r.ReplyCount = replyCounts[r.ID]
			r.LikeCount = likeCounts[r.ID]
			r.UserLiked = liked[r.ID]
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": requests})
}

func (h *Handler) countsByRequest(c echo.Context, query string, ids []string) map[string]int {
	out := map[string]int{}
	rows, err := h.db.Query(c.Request().Context(), query, ids)
	if err != nil {
		log.Printf("board counts: %v", err)
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			continue
		}
		out[id] = n
	}
	return out
}

func (h *Handler) likedByUser(c echo.Context, ids []string, userID string) map[string]bool {
	out := map[string]bool{}
	rows, err := h.db.Query(c.Request().Context(),
		`SELECT request_id::text FROM request_likes WHERE request_id = ANY($1) AND user_id = $2`, ids, userID)
	if err != nil {
		log.Printf("board liked flags: %v", err)
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		out[id] = true
	}
	return out
}

type createRequestInput struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
	Budget      *float64 `json:"budget"`
}

// Create - POST /board/requests
func (h *Handler) Create(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	req := new(createRequestInput)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Title is required"})
	}

	var r request
	err := h.db.QueryRow(c.Request().Context(), `
        INSERT INTO requests (user_id, title, description, category, subcategory, budget, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'active')
        RETURNING id::text, user_id::text, title, description, category, subcategory, budget::float8, status, created_at`,
		userID, req.Title, req.Description, req.Category, req.Subcategory, req.Budget).
		Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.Category,
			&r.Subcategory, &r.Budget, &r.Status, &r.CreatedAt)
	if err != nil {
		log.Printf("create board request for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create request"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": &r})
}

// Delete - DELETE /board/requests/:id
func (h *Handler) Delete(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	requestID := c.Param("id")
	ctx := c.Request().Context()

	var ownerID string
	err := h.db.QueryRow(ctx,
		`SELECT user_id::text FROM requests WHERE id = $1`, requestID).Scan(&ownerID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Request not found"})
	}
	if ownerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	}

	if _, err := h.db.Exec(ctx, `DELETE FROM requests WHERE id = $1`, requestID); err != nil {
		log.Printf("delete board request %s: %v", requestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete request"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Request deleted"})
}

// ToggleLike - POST /board/requests/:id/like
func (h *Handler) ToggleLike(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	requestID := c.Param("id")
	ctx := c.Request().Context()

	tag, err := h.db.Exec(ctx,
		`DELETE FROM request_likes WHERE request_id = $1 AND user_id = $2`, requestID, userID)
	if err != nil {
		log.Printf("toggle like %s: %v", requestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to toggle like"})
	}

	userLiked := false
	if tag.RowsAffected() == 0 {
		_, err = h.db.Exec(ctx,
			`INSERT INTO request_likes (request_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, requestID, userID)
		if err != nil {
			log.Printf("toggle like %s: %v", requestID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to toggle like"})
		}
		userLiked = true
	}

	var likeCount int
	if err := h.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM request_likes WHERE request_id = $1`, requestID).Scan(&likeCount); err != nil {
		log.Printf("like count %s: %v", requestID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"like_count": likeCount, "user_liked": userLiked},
	})
}

type reply struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Replies - GET /board/requests/:id/replies
func (h *Handler) Replies(c echo.Context) error {
	requestID := c.Param("id")

	rows, err := h.db.Query(c.Request().Context(), `
        SELECT id::text, request_id::text, user_id::text, message, created_at
        FROM request_replies
        WHERE request_id = $1
        ORDER BY created_at ASC`, requestID)
	if err != nil {
		log.Printf("list replies %s: %v", requestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load replies"})
	}
	defer rows.Close()

	replies := []reply{}
	for rows.Next() {
		var r reply
		if err := rows.Scan(&r.ID, &r.RequestID, &r.UserID, &r.Message, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load replies"})
		}
		replies = append(replies, r)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": replies})
}

type createReplyInput struct {
	Content string `json:"content"`
}

// CreateReply - POST /board/requests/:id/replies
func (h *Handler) CreateReply(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	requestID := c.Param("id")

	req := new(createReplyInput)
	if err := c.Bind(req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Content is required"})
	}

	var r reply
	err := h.db.QueryRow(c.Request().Context(), `
        INSERT INTO request_replies (request_id, user_id, message)
        VALUES ($1, $2, $3)
        RETURNING id::text, request_id::text, user_id::text, message, created_at`,
		requestID, userID, req.Content).
		Scan(&r.ID, &r.RequestID, &r.UserID, &r.Message, &r.CreatedAt)
	if err != nil {
		log.Printf("create reply on %s: %v", requestID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create reply"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": &r})
}

// DeleteReply - DELETE /board/requests/:id/replies/:replyId
func (h *Handler) DeleteReply(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	requestID := c.Param("id")
	replyID := c.Param("replyId")
	ctx := c.Request().Context()

	var ownerID string
	err := h.db.QueryRow(ctx,
		`SELECT user_id::text FROM request_replies WHERE id = $1 AND request_id = $2`,
		replyID, requestID).Scan(&ownerID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Reply not found"})
	}
	if ownerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	}

	if _, err := h.db.Exec(ctx, `DELETE FROM request_replies WHERE id = $1`, replyID); err != nil {
		log.Printf("delete reply %s: %v", replyID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete reply"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Reply deleted"})
}
