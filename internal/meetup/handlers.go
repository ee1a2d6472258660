package meetup

import (
	"errors"
	"log"
	"net/http"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Handler exposes the meetup lifecycle over HTTP.
type Handler struct {
	svc   *Lifecycle
	store *PgxStore
}

func NewHandler(db *pgxpool.Pool) *Handler {
	store := NewPgxStore(db)
	return &Handler{svc: NewLifecycle(store), store: store}
}

type cancelRequest struct {
	Reason *string `json:"reason"`
}

// Create - POST /api/meetup/create
func (h *Handler) Create(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}

	m, err := h.svc.Create(c.Request().Context(), sellerID, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": m})
}

// MyMeetups - GET /api/meetup/my-meetups
// Returns the caller's meetups with counterpart names and item summaries.
// User and item lookups are batched: one query per referenced table, not one
// per row.
func (h *Handler) MyMeetups(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}
	ctx := c.Request().Context()

	meetups, err := h.store.ListForUser(ctx, userID)
	if err != nil {
		return h.fail(c, err)
	}

	userIDs := make([]string, 0, len(meetups)*2)
	itemIDs := make([]string, 0, len(meetups))
	seen := map[string]bool{}
	for _, m := range meetups {
		for _, id := range []string{m.SellerID, m.BuyerID} {
			if !seen[id] {
				seen[id] = true
				userIDs = append(userIDs, id)
			}
		}
		if m.ItemID != nil && !seen[*m.ItemID] {
			seen[*m.ItemID] = true
			itemIDs = append(itemIDs, *m.ItemID)
		}
	}

	// Display lookups are non-essential: degrade to placeholders, never fail
	// the whole list.
	users, err := h.store.UsersByID(ctx, userIDs)
	if err != nil {
		log.Printf("my-meetups: batch user lookup: %v", err)
		users = map[string]UserSummary{}
	}
	items, err := h.store.ItemsByID(ctx, itemIDs)
	if err != nil {
		log.Printf("my-meetups: batch item lookup: %v", err)
		items = map[string]ItemSummary{}
	}

	views := make([]View, 0, len(meetups))
	for _, m := range meetups {
		v := View{Meetup: m, ItemTitle: "Unknown Item", ItemImages: []string{}}

		seller, ok := users[m.SellerID]
		if !ok {
			seller = UserSummary{FirstName: "Unknown", LastName: "User"}
		}
		v.SellerFirstName, v.SellerLastName, v.SellerEmail = seller.FirstName, seller.LastName, seller.Email

		buyer, ok := users[m.BuyerID]
		if !ok {
			buyer = UserSummary{FirstName: "Unknown", LastName: "User"}
		}
		v.BuyerFirstName, v.BuyerLastName, v.BuyerEmail = buyer.FirstName, buyer.LastName, buyer.Email

		if m.ItemID != nil {
			if it, ok := items[*m.ItemID]; ok {
				v.ItemTitle = it.Title
				v.ItemPrice = it.Price
				if it.Images != nil {
					v.ItemImages = it.Images
				}
			}
		}
		views = append(views, v)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": views})
}

// Accept - PUT /api/meetup/:id/accept
func (h *Handler) Accept(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	m, err := h.svc.Accept(c.Request().Context(), buyerID, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": m})
}

// Decline - PUT /api/meetup/:id/decline
func (h *Handler) Decline(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	var req cancelRequest
	_ = c.Bind(&req) // reason is optional; an empty body is fine

	m, err := h.svc.Decline(c.Request().Context(), buyerID, c.Param("id"), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": m})
}

// Complete - PUT /api/meetup/:id/complete
func (h *Handler) Complete(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	m, err := h.svc.Complete(c.Request().Context(), buyerID, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": m})
}

// Cancel - DELETE /api/meetup/:id/cancel
func (h *Handler) Cancel(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	var req cancelRequest
	_ = c.Bind(&req)

	m, err := h.svc.Cancel(c.Request().Context(), userID, c.Param("id"), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": m})
}

// Reschedule - PUT /api/meetup/:id/reschedule
func (h *Handler) Reschedule(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	var s Schedule
	if err := c.Bind(&s); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}

	m, err := h.svc.Reschedule(c.Request().Context(), sellerID, c.Param("id"), s)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": m})
}

// SearchUsers - GET /api/meetup/search-users?q=
func (h *Handler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if utf8.RuneCountInString(query) < 2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Query too short"})
	}

	users, err := h.store.SearchUsers(c.Request().Context(), query)
	if err != nil {
		return h.fail(c, err)
	}
	if users == nil {
		users = []UserSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": users})
}

func (h *Handler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Meetup not found"})
	case errors.Is(err, ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Unauthorized"})
	case errors.Is(err, ErrNotConfirmed):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Meetup must be confirmed first"})
	default:
		log.Printf("meetup handler error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
}
