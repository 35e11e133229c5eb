package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"huntbooking/internal/middleware"
	"huntbooking/internal/pkg/response"
)

type Handler struct {
	service  *Service
	feed     *Feed
	upgrader websocket.Upgrader
}

// NewHandler allows feed connections from allowedOrigins; an empty list allows any origin.
func NewHandler(service *Service, feed *Feed, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		service: service,
		feed:    feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{middleware.WebSocketTokenProtocol},
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// RegisterRoutes expects an admin-only group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings/:id/audit", h.ListForBooking)
	rg.GET("/audit/feed", h.Feed)
}

func (h *Handler) ListForBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking id")
		return
	}

	records, err := h.service.ListForBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load audit trail")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"records": records})
}

// Feed upgrades to a websocket streaming audit records.
// Optional ?booking_id= narrows the stream to one booking. Browsers authenticate with
// the subprotocols ["bearer", token].
func (h *Handler) Feed(c *gin.Context) {
	var bookingID int64
	if raw := c.Query("booking_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking_id")
			return
		}
		bookingID = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	h.feed.Serve(conn, c.GetString("email"), bookingID)
}
