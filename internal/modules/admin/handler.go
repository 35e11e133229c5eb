package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"huntbooking/internal/modules/fulfillment"
	"huntbooking/internal/pkg/response"
)

type Handler struct {
	service  *Service
	bookings BookingOperations
}

func NewHandler(service *Service, bookings BookingOperations) *Handler {
	return &Handler{service: service, bookings: bookings}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
}

// RegisterRoutes expects a group behind JWTAuth and AdminOnly.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/bookings/:id/refund", h.RefundBooking)
	admin.POST("/bookings/bulk-delete", h.BulkDelete)
	admin.PATCH("/bookings/:id", h.EditBooking)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	case errors.Is(err, ErrAccountDisabled):
		response.Error(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
		return
	case err != nil:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RefundBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.bookings.ProcessRefund(c.Request.Context(), id, actor(c))
	if err != nil {
		fulfillment.WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "ids must list between 1 and 500 booking ids")
		return
	}
	res, err := h.bookings.BulkDeleteBookings(c.Request.Context(), req.IDs, actor(c))
	if err != nil {
		fulfillment.WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) EditBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req EditBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	b, err := h.bookings.EditCustomer(c.Request.Context(), id, req, actor(c))
	if err != nil {
		fulfillment.WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking id")
		return 0, false
	}
	return id, true
}

// actor is the admin's email from the access token.
func actor(c *gin.Context) string {
	if email := c.GetString("email"); email != "" {
		return email
	}
	return "admin:" + strconv.FormatInt(c.GetInt64("user_id"), 10)
}
