package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Item is a marketplace listing.
type Item struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Subcategory *string   `json:"subcategory"`
	Condition   *string   `json:"condition"`
	Size        *string   `json:"size"`
	Notes       *string   `json:"notes"`
	Price       *float64  `json:"price"`
	Images      []string  `json:"images"`
	Status      string    `json:"status"`
	IsSold      bool      `json:"is_sold"`
	ViewCount   int       `json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`
}

const itemColumns = `
    id::text, seller_id::text, title, description, category, subcategory,
    condition, size, notes, price::float8, images, status, is_sold, view_count, created_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	var images []byte
	err := row.Scan(&it.ID, &it.SellerID, &it.Title, &it.Description, &it.Category,
		&it.Subcategory, &it.Condition, &it.Size, &it.Notes, &it.Price,
		&images, &it.Status, &it.IsSold, &it.ViewCount, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &it.Images); err != nil {
			it.Images = nil
		}
	}
	return &it, nil
}

type Handler struct {
	db *pgxpool.Pool
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{db: db}
}

type createRequest struct {
	Title       string   `json:"title"`
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
	Price       *float64 `json:"price"`
	Condition   *string  `json:"condition"`
	Size        *string  `json:"size"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Images      []string `json:"images"`
}

// Create - POST /items
func (h *Handler) Create(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	req := new(createRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Title is required"})
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "server error"})
	}

	row := h.db.QueryRow(c.Request().Context(), `
        INSERT INTO items (seller_id, title, category, subcategory, price, condition, size, description, notes, images)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING`+itemColumns,
		userID, req.Title, req.Category, req.Subcategory, req.Price,
		req.Condition, req.Size, req.Description, req.Notes, imagesJSON)

	created, err := scanItem(row)
	if err != nil {
		log.Printf("create item for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create item"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": created})
}

// MyItems - GET /items/user/me
func (h *Handler) MyItems(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	rows, err := h.db.Query(c.Request().Context(),
		`SELECT`+itemColumns+` FROM items WHERE seller_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Printf("list items for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load items"})
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load items"})
		}
		items = append(items, it)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}

// updatableColumns is the whitelist for PUT /items/:id. Everything else the
// client sends (seller_id, status, view_count, ...) is dropped.
var updatableColumns = map[string]bool{
	"title":       true,
	"description": true,
	"category":    true,
	"subcategory": true,
	"condition":   true,
	"size":        true,
	"notes":       true,
	"price":       true,
	"images":      true,
}

// Update - PUT /items/:id
func (h *Handler) Update(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	itemID := c.Param("id")

	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	if !h.ownsItem(c.Request().Context(), itemID, userID) {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Item not found or you don't have permission"})
	}

	var (
		sets []string
		args []interface{}
	)
	for col, val := range fields {
		if !updatableColumns[col] {
			continue
		}
		if col == "images" {
			raw, err := json.Marshal(val)
			if err != nil {
				continue
			}
			val = raw
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "No updatable fields provided"})
	}

	args = append(args, itemID)
	query := fmt.Sprintf("UPDATE items SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), itemColumns)

	updated, err := scanItem(h.db.QueryRow(c.Request().Context(), query, args...))
	if err != nil {
		log.Printf("update item %s: %v", itemID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update item"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Item updated successfully", "data": updated})
}

// Delete - DELETE /items/:id
func (h *Handler) Delete(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	itemID := c.Param("id")

	tag, err := h.db.Exec(c.Request().Context(),
		`DELETE FROM items WHERE id = $1 AND seller_id = $2`, itemID, userID)
	if err != nil {
		log.Printf("delete item %s: %v", itemID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete item"})
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Item not found or you don't have permission to delete it"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Item deleted successfully"})
}

// IncrementView - POST /items/:id/view
func (h *Handler) IncrementView(c echo.Context) error {
	itemID := c.Param("id")

	var count int
	err := h.db.QueryRow(c.Request().Context(), `
        UPDATE items SET view_count = view_count + 1 WHERE id = $1
        RETURNING view_count`, itemID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Item not found"})
	}
	if err != nil {
		log.Printf("increment view %s: %v", itemID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to record view"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "view_count": count})
}

func (h *Handler) ownsItem(ctx context.Context, itemID, userID string) bool {
	var exists bool
	err := h.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE id = $1 AND seller_id = $2)`, itemID, userID).Scan(&exists)
	return err == nil && exists
}
