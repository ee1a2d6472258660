package marketplace

import (
	"encoding/json"
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

type listing struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          *string   `json:"description"`
	Price                *float64  `json:"price"`
	Category             *string   `json:"category"`
	Subcategory          *string   `json:"subcategory"`
	Condition            *string   `json:"condition"`
	Images               []string  `json:"images"`
	Status               string    `json:"status"`
	Size                 *string   `json:"size"`
	CreatedAt            time.Time `json:"created_at"`
	SellerID             string    `json:"seller_id"`
	SellerFirstName      string    `json:"seller_first_name"`
	SellerLastName       string    `json:"seller_last_name"`
	SellerProfilePicture *string   `json:"seller_profile_picture"`
}

// Feed - GET /marketplace/items
//
// Active listings newest first, capped at 100. Seller names come from one
// batched users query; a missing seller degrades to an "Unknown User"
// placeholder rather than dropping the listing.
func (h *Handler) Feed(c echo.Context) error {
	ctx := c.Request().Context()

	rows, err := h.db.Query(ctx, `
        SELECT id::text, title, description, price::float8, category, subcategory,
            condition, images, status, size, created_at, seller_id::text
        FROM items
        WHERE status = 'active'
        ORDER BY created_at DESC
        LIMIT 100`)
	if err != nil {
		log.Printf("marketplace feed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load marketplace"})
	}
	defer rows.Close()

	listings := []*listing{}
	sellerIDs := map[string]bool{}
	for rows.Next() {
		var l listing
		var images []byte
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.Price, &l.Category,
			&l.Subcategory, &l.Condition, &images, &l.Status, &l.Size,
			&l.CreatedAt, &l.SellerID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load marketplace"})
		}
		if len(images) > 0 {
			_ = json.Unmarshal(images, &l.Images)
		}
		listings = append(listings, &l)
		sellerIDs[l.SellerID] = true
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load marketplace"})
	}

	sellers := h.sellersByID(c, sellerIDs)
	for _, l := range listings {
		if s, ok := sellers[l.SellerID]; ok {
			l.SellerFirstName = s.firstName
			l.SellerLastName = s.lastName
			l.SellerProfilePicture = s.profilePicture
		} else {
			l.SellerFirstName = "Unknown"
			l.SellerLastName = "User"
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": listings})
}

type sellerInfo struct {
	firstName      string
	lastName       string
	profilePicture *string
}

func (h *Handler) sellersByID(c echo.Context, ids map[string]bool) map[string]sellerInfo {
	out := map[string]sellerInfo{}
	if len(ids) == 0 {
		return out
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	rows, err := h.db.Query(c.Request().Context(), `
        SELECT id::text, first_name, last_name, profile_picture
        FROM users WHERE id = ANY($1)`, list)
	if err != nil {
		log.Printf("marketplace seller lookup: %v", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var s sellerInfo
		if err := rows.Scan(&id, &s.firstName, &s.lastName, &s.profilePicture); err != nil {
			continue
		}
		out[id] = s
	}
	return out
}
