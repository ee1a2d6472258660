package offer

import (
	"context"
	"encoding/json"
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

type createOfferInput struct {
	ItemID      string   `json:"item_id"`
	OfferAmount *float64 `json:"offer_amount"`
	Message     *string  `json:"message"`
}

// Create - POST /api/offers/create
func (h *Handler) Create(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	req := new(createOfferInput)
	if err := c.Bind(req); err != nil || req.ItemID == "" || req.OfferAmount == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "item_id and offer_amount are required"})
	}
	ctx := c.Request().Context()

	var (
		sellerID  string
		itemTitle string
		isSold    bool
	)
	err := h.db.QueryRow(ctx,
		`SELECT seller_id::text, title, is_sold FROM items WHERE id = $1`, req.ItemID).
		Scan(&sellerID, &itemTitle, &isSold)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Item not found"})
	}
	if isSold {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Item is already sold"})
	}
	if sellerID == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Cannot make offer on your own item"})
	}

	offerID := uuid.New().String()
	_, err = h.db.Exec(ctx, `
        INSERT INTO offers (id, item_id, buyer_id, seller_id, offer_amount, message, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'pending')`,
		offerID, req.ItemID, userID, sellerID, *req.OfferAmount, req.Message)
	if err != nil {
		log.Printf("create offer on %s by %s: %v", req.ItemID, userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create offer"})
	}

	notification.NotifyOffer(ctx, h.db, sellerID, h.displayName(ctx, userID), itemTitle, offerID)

	return c.JSON(http.StatusCreated, echo.Map{
		"success":  true,
		"message":  "Offer created successfully",
		"offer_id": offerID,
	})
}

// offerView is an offer joined with its item and the counterpart user.
// For received offers the counterpart is the buyer, for sent offers the
// seller.
type offerView struct {
	ID              string    `json:"id"`
	ItemID          string    `json:"item_id"`
	BuyerID         string    `json:"buyer_id"`
	SellerID        string    `json:"seller_id"`
	OfferAmount     float64   `json:"offer_amount"`
	Message         *string   `json:"message"`
	CounterAmount   *float64  `json:"counter_amount"`
	CounterMessage  *string   `json:"counter_message"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ItemTitle       *string   `json:"item_title"`
	ItemPrice       *float64  `json:"item_price"`
	ItemImage       *string   `json:"item_image"`
	OtherFirstName  *string   `json:"-"`
	OtherLastName   *string   `json:"-"`
	OtherProfilePic *string   `json:"-"`
}

// Received - GET /api/offers/received
func (h *Handler) Received(c echo.Context) error {
	return h.list(c, "o.buyer_id", "o.seller_id", "buyer")
}

// Sent - GET /api/offers/sent
func (h *Handler) Sent(c echo.Context) error {
	return h.list(c, "o.seller_id", "o.buyer_id", "seller")
}

func (h *Handler) list(c echo.Context, counterpartColumn, ownerColumn, role string) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	query := `
    SELECT o.id::text, o.item_id::text, o.buyer_id::text, o.seller_id::text,
        o.offer_amount::float8, o.message, o.counter_amount::float8, o.counter_message,
        o.status, o.created_at,
        i.title, i.price::float8, i.images,
        u.first_name, u.last_name, u.profile_picture
    FROM offers o
    LEFT JOIN items i ON i.id = o.item_id
    LEFT JOIN users u ON u.id = ` + counterpartColumn + `
    WHERE ` + ownerColumn + ` = $1
    ORDER BY o.created_at DESC`

	rows, err := h.db.Query(c.Request().Context(), query, userID)
	if err != nil {
		log.Printf("list %s offers for %s: %v", role, userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load offers", "offers": []offerView{}})
	}
	defer rows.Close()

	offers := []map[string]interface{}{}
	for rows.Next() {
		var (
			o      offerView
			images []byte
		)
		if err := rows.Scan(&o.ID, &o.ItemID, &o.BuyerID, &o.SellerID,
			&o.OfferAmount, &o.Message, &o.CounterAmount, &o.CounterMessage,
			&o.Status, &o.CreatedAt,
			&o.ItemTitle, &o.ItemPrice, &images,
			&o.OtherFirstName, &o.OtherLastName, &o.OtherProfilePic); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load offers", "offers": []offerView{}})
		}
		offers = append(offers, offerPayload(&o, images, role))
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "offers": offers})
}

// offerPayload names the counterpart fields by role so the response matches
// what the clients already render (buyer_* on received, seller_* on sent).
func offerPayload(o *offerView, imagesRaw []byte, role string) map[string]interface{} {
	var itemImage *string
	if len(imagesRaw) > 0 {
		var images []string
		if err := json.Unmarshal(imagesRaw, &images); err == nil && len(images) > 0 {
			itemImage = &images[0]
		}
	}

	payload := map[string]interface{}{
		"id":              o.ID,
		"item_id":         o.ItemID,
		"buyer_id":        o.BuyerID,
		"seller_id":       o.SellerID,
		"offer_amount":    o.OfferAmount,
		"message":         o.Message,
		"counter_amount":  o.CounterAmount,
		"counter_message": o.CounterMessage,
		"status":          o.Status,
		"created_at":      o.CreatedAt,
		"item_title":      o.ItemTitle,
		"item_price":      o.ItemPrice,
		"item_image":      itemImage,
	}
	payload[role+"_first_name"] = o.OtherFirstName
	payload[role+"_last_name"] = o.OtherLastName
	payload[role+"_profile_picture"] = o.OtherProfilePic
	return payload
}

type updateStatusInput struct {
	Status         string   `json:"status"`
	CounterAmount  *float64 `json:"counter_amount"`
	CounterMessage *string  `json:"counter_message"`
}

// UpdateStatus - PUT /api/offers/:id/status
func (h *Handler) UpdateStatus(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	offerID := c.Param("id")

	req := new(updateStatusInput)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	switch req.Status {
	case "accepted", "rejected", "countered":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "status must be accepted, rejected or countered"})
	}
	ctx := c.Request().Context()

	var sellerID, itemID string
	err := h.db.QueryRow(ctx,
		`SELECT seller_id::text, item_id::text FROM offers WHERE id = $1`, offerID).
		Scan(&sellerID, &itemID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Offer not found"})
	}
	if sellerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	}

	if req.Status == "countered" && req.CounterAmount != nil {
		_, err = h.db.Exec(ctx, `
            UPDATE offers SET status = $1, counter_amount = $2, counter_message = $3
            WHERE id = $4`, req.Status, *req.CounterAmount, req.CounterMessage, offerID)
	} else {
		_, err = h.db.Exec(ctx, `UPDATE offers SET status = $1 WHERE id = $2`, req.Status, offerID)
	}
	if err != nil {
		log.Printf("update offer %s status: %v", offerID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update offer"})
	}

	if req.Status == "accepted" {
		if _, err := h.db.Exec(ctx, `UPDATE items SET is_sold = TRUE WHERE id = $1`, itemID); err != nil {
			log.Printf("mark item %s sold: %v", itemID, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Offer " + req.Status + " successfully"})
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
