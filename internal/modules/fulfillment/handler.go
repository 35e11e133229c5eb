package fulfillment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"huntbooking/internal/domain"
	"huntbooking/internal/modules/coupon"
	"huntbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/:code", h.GetBooking)
	rg.POST("/bookings/:code/intent", h.RetryIntent)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		WriteError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, CreateBookingResponse{
		BookingCode:        res.BookingCode,
		Status:             res.Status,
		TotalPrice:         res.Booking.TotalPrice,
		GatewayClientToken: res.GatewayClientToken,
	})
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toStatusResponse(b))
}

func (h *Handler) RetryIntent(c *gin.Context) {
	res, err := h.service.RetryPaymentIntent(c.Request.Context(), c.Param("code"))
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, CreateBookingResponse{
		BookingCode:        res.BookingCode,
		Status:             res.Status,
		TotalPrice:         res.Booking.TotalPrice,
		GatewayClientToken: res.GatewayClientToken,
	})
}

// WriteError maps the fulfillment error taxonomy onto the response envelope.
// Admin handlers reuse it.
func WriteError(c *gin.Context, err error) {
	var (
		intentErr *IntentError
		verr      *domain.ValidationError
	)
	switch {
	case errors.As(err, &intentErr):
		response.ErrorWithDetails(c, http.StatusBadGateway, "GATEWAY_ERROR",
			"Booking created but payment could not be initiated; retry with the booking code",
			gin.H{"booking_code": intentErr.BookingCode})
	case errors.Is(err, ErrValidation) && errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking data", verr.Fields)
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking data")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking or event not found")
	case errors.Is(err, ErrInventoryExhausted):
		response.Error(c, http.StatusConflict, "INVENTORY_EXHAUSTED", "Not enough seats available")
	case errors.Is(err, coupon.ErrCouponExhausted):
		response.Error(c, http.StatusConflict, "COUPON_EXHAUSTED", "Coupon usage limit reached")
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", "Booking is not in a valid state for this operation")
	case errors.Is(err, ErrGateway):
		response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment gateway request failed")
	case errors.Is(err, ErrCodeGenerationExhausted):
		response.Error(c, http.StatusServiceUnavailable, "CODE_GENERATION_EXHAUSTED", "No booking codes left for today")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
