package fulfillment

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func setupRouter(t *testing.T) (*gin.Engine, *env) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := newEnv(t)
	router := gin.New()
	NewHandler(e.svc).RegisterRoutes(router.Group("/api/v1"))
	return router, e
}

func performRequest(router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var out envelope
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	return resp, out
}

func TestHandler_CreateAndFetch(t *testing.T) {
	router, e := setupRouter(t)
	ev := e.event(t, 4, 1500)

	resp, body := performRequest(router, http.MethodPost, "/api/v1/bookings", request(ev.ID, 2, ""))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created CreateBookingResponse
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "pending", string(created.Status))
	assert.Equal(t, int64(3000), created.TotalPrice)
	assert.NotEmpty(t, created.GatewayClientToken)

	resp, body = performRequest(router, http.MethodGet, "/api/v1/bookings/"+created.BookingCode, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, string(body.Data), "customer_email")

	resp, body = performRequest(router, http.MethodGet, "/api/v1/bookings/ELK-20000101-0001", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestHandler_ErrorMapping(t *testing.T) {
	router, e := setupRouter(t)
	ev := e.event(t, 1, 1500)

	resp, body := performRequest(router, http.MethodPost, "/api/v1/bookings", request(ev.ID, 2, ""))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "INVENTORY_EXHAUSTED", body.Error.Code)

	bad := request(ev.ID, 1, "")
	bad.CustomerEmail = "nope"
	resp, body = performRequest(router, http.MethodPost, "/api/v1/bookings", bad)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "CustomerEmail")

	resp, body = performRequest(router, http.MethodPost, "/api/v1/bookings", map[string]any{"event_id": ev.ID})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestHandler_IntentFailureReturnsBookingCode(t *testing.T) {
	router, e := setupRouter(t)
	ev := e.event(t, 4, 1500)
	e.gateway.intentErr = errors.New("timeout")

	resp, body := performRequest(router, http.MethodPost, "/api/v1/bookings", request(ev.ID, 1, ""))
	require.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, "GATEWAY_ERROR", body.Error.Code)
	code, _ := body.Error.Details["booking_code"].(string)
	require.NotEmpty(t, code)

	e.gateway.intentErr = nil
	resp, _ = performRequest(router, http.MethodPost, "/api/v1/bookings/"+code+"/intent", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, body = performRequest(router, http.MethodPost, "/api/v1/bookings/"+code+"/intent", nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "INVALID_STATE", body.Error.Code)
}
