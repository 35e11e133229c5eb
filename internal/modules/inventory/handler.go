package inventory

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"huntbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events/:id/availability", h.GetAvailability)
}

func (h *Handler) GetAvailability(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid event id")
		return
	}

	seats, err := h.service.Availability(c.Request.Context(), eventID)
	if errors.Is(err, ErrEventNotFound) {
		response.Error(c, http.StatusNotFound, "EVENT_NOT_FOUND", "Event not found")
		return
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load availability")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"event_id":        eventID,
		"seats_available": seats,
	})
}
