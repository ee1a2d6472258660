package dashboard

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Handler serves the dashboard projection.
type Handler struct {
	agg *Aggregator
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{agg: NewAggregator(NewPgxSource(db))}
}

// Dashboard - GET /api/user/dashboard
func (h *Handler) Dashboard(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing Token"})
	}

	user, stats, err := h.agg.Dashboard(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found"})
		}
		log.Printf("dashboard error for %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to load dashboard"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
		"stats":   stats,
	})
}
