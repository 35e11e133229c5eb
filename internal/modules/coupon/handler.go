package coupon

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"huntbooking/internal/pkg/money"
	"huntbooking/internal/pkg/response"
	"huntbooking/internal/repository"
)

// Handler serves the strict coupon check used by the booking form.
// Unlike booking creation, every coupon failure is reported.
type Handler struct {
	service *Service
	events  EventReader
}

func NewHandler(service *Service, events EventReader) *Handler {
	return &Handler{service: service, events: events}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/coupons/:code/validate", h.Validate)
}

func (h *Handler) Validate(c *gin.Context) {
	var q ValidateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "event_id and tickets are required")
		return
	}

	ev, err := h.events.GetByID(c.Request.Context(), q.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(c, http.StatusNotFound, "EVENT_NOT_FOUND", "Event not found")
		return
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load event")
		return
	}

	cp, err := h.service.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, ErrCouponNotFound):
			response.Error(c, http.StatusNotFound, "COUPON_NOT_FOUND", "Coupon not found")
		case errors.Is(err, ErrCouponExpired):
			response.Error(c, http.StatusGone, "COUPON_EXPIRED", "Coupon has expired")
		case errors.Is(err, ErrCouponExhausted):
			response.Error(c, http.StatusConflict, "COUPON_EXHAUSTED", "Coupon usage limit reached")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to validate coupon")
		}
		return
	}

	subtotal := ev.UnitPrice * int64(q.Tickets)
	response.Success(c, http.StatusOK, ValidateResponse{
		Code:            cp.Code,
		DiscountPercent: cp.DiscountPercent,
		Subtotal:        subtotal,
		Total:           money.ApplyDiscount(subtotal, cp.DiscountPercent),
	})
}
