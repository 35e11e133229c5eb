package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	gateway *Gateway
	loggerf func(format string, args ...interface{})
}

func NewHandler(gateway *Gateway, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{gateway: gateway, loggerf: loggerf}
}

// RegisterWebhookRoutes mounts the gateway callbacks; guard rg with the webhook allowlist.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook/result", h.ResultCallback)
	rg.GET("/payments/webhook/fail", h.FailCallback)
}

// ResultCallback answers "OK<InvId>" once the payment is recorded, including redeliveries.
func (h *Handler) ResultCallback(c *gin.Context) {
	rawBody, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(rawBody)))
	_ = c.Request.ParseForm()
	h.loggerf("level=info msg=result callback received raw_body=%s", string(rawBody))

	outSum := c.PostForm("OutSum")
	invID, err := strconv.ParseInt(c.PostForm("InvId"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	signature := c.PostForm("SignatureValue")
	shp := collectShp(c)

	ack, err := h.gateway.HandleResultCallback(c.Request.Context(), outSum, invID, signature, shp, string(rawBody))
	if err != nil {
		h.loggerf("level=error msg=result callback failed inv_id=%d err=%v", invID, err)
		switch {
		case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrAmountMismatch):
			c.String(http.StatusForbidden, "forbidden")
		case errors.Is(err, ErrUnknownReference):
			c.String(http.StatusNotFound, "unknown invoice")
		default:
			c.String(http.StatusInternalServerError, "internal error")
		}
		return
	}
	h.loggerf("level=info msg=result callback handled inv_id=%d ack=%s", invID, ack)
	c.String(http.StatusOK, ack)
}

func (h *Handler) FailCallback(c *gin.Context) {
	raw := c.Request.URL.RawQuery
	h.loggerf("level=info msg=fail callback received raw_query=%s", raw)
	outSum := c.Query("OutSum")
	invID, err := strconv.ParseInt(c.Query("InvId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid InvId"})
		return
	}
	signature := c.Query("SignatureValue")
	shp := collectShp(c)

	if err := h.gateway.HandleFailCallback(c.Request.Context(), outSum, invID, signature, shp, raw); err != nil {
		h.loggerf("level=error msg=fail callback failed inv_id=%d err=%v", invID, err)
		switch {
		case errors.Is(err, ErrInvalidSignature):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, ErrUnknownReference):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func collectShp(c *gin.Context) map[string]string {
	res := map[string]string{}
	for k, v := range c.Request.Form {
		if strings.HasPrefix(strings.ToLower(k), "shp_") && len(v) > 0 {
			res[k[4:]] = v[0]
		}
	}
	for k, v := range c.Request.URL.Query() {
		if strings.HasPrefix(strings.ToLower(k), "shp_") && len(v) > 0 {
			res[k[4:]] = v[0]
		}
	}
	return res
}
