package alerts

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type feedbackRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Page    string `json:"page"`
	Contact string `json:"contact"`
}

// SendFeedback - POST /api/feedback/send
func (h *Handler) SendFeedback(c echo.Context) error {
	req := new(feedbackRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Message is required"})
	}

	feedbackType := strings.ToLower(strings.TrimSpace(req.Type))
	if err := h.svc.EnqueueFeedback(feedbackType, strings.TrimSpace(req.Page), strings.TrimSpace(req.Contact), message); err != nil {
		log.Printf("enqueue feedback: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to send feedback email"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Feedback sent. Thank you!"})
}
