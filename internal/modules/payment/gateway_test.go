package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"huntbooking/internal/config"
	"huntbooking/internal/domain"
	"huntbooking/internal/repository"
	"huntbooking/internal/testutil"
)

type mockEventHandler struct {
	mock.Mock
}

func (m *mockEventHandler) HandlePaymentSucceeded(ctx context.Context, ref string) error {
	return m.Called(ref).Error(0)
}

func (m *mockEventHandler) HandlePaymentFailed(ctx context.Context, ref string) error {
	return m.Called(ref).Error(0)
}

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		MerchantLogin: "hunts",
		Password1:     "p1",
		Password2:     "p2",
		Password3:     "p3",
		BaseURL:       "https://pay.example.com/checkout",
		IsTest:        "1",
	}
}

func newTestGateway(t *testing.T, cfg config.GatewayConfig) (*Gateway, *repository.PaymentIntentRepository) {
	t.Helper()
	repo := repository.NewPaymentIntentRepository(testutil.NewDB(t))
	g := NewGateway(repo, cfg, nil)
	var tick int64 = 1_700_000_000_000_000_000
	g.now = func() time.Time {
		return time.Unix(0, atomic.AddInt64(&tick, 1))
	}
	return g, repo
}

func createIntent(t *testing.T, g *Gateway, amount int64) (*Intent, int64) {
	t.Helper()
	intent, err := g.CreateIntent(context.Background(), IntentRequest{
		BookingID:   1,
		Amount:      amount,
		Currency:    "USD",
		Description: "Booking ELK-20260101-0001",
		Metadata:    map[string]string{"booking_code": "ELK-20260101-0001"},
	})
	require.NoError(t, err)
	invID, err := strconv.ParseInt(intent.PaymentReference, 10, 64)
	require.NoError(t, err)
	return intent, invID
}

func TestCreateIntent(t *testing.T) {
	g, repo := newTestGateway(t, testConfig())

	intent, invID := createIntent(t, g, 4000)

	u, err := url.Parse(intent.ClientToken)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "40.00", q.Get("OutSum"))
	assert.Equal(t, intent.PaymentReference, q.Get("InvId"))
	assert.Equal(t, "ELK-20260101-0001", q.Get("Shp_booking_code"))
	assert.Equal(t, g.signatureForInit("40.00", invID, map[string]string{"booking_code": "ELK-20260101-0001"}), q.Get("SignatureValue"))

	p, err := repo.GetByInvID(context.Background(), invID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, p.Status)
	assert.Equal(t, "40.00", p.OutSum)
}

func TestCreateIntent_NotConfigured(t *testing.T) {
	g, _ := newTestGateway(t, config.GatewayConfig{})

	_, err := g.CreateIntent(context.Background(), IntentRequest{BookingID: 1, Amount: 100})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHandleResultCallback(t *testing.T) {
	ctx := context.Background()
	g, repo := newTestGateway(t, testConfig())
	events := &mockEventHandler{}
	g.SetEventHandler(events)
	_, invID := createIntent(t, g, 4000)
	shp := map[string]string{"booking_code": "ELK-20260101-0001"}
	ref := strconv.FormatInt(invID, 10)

	_, err := g.HandleResultCallback(ctx, "40.00", invID, "bad", shp, "raw")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.HandleResultCallback(ctx, "20.00", invID, g.signatureForResult("20.00", invID, shp), shp, "raw")
	assert.ErrorIs(t, err, ErrAmountMismatch)
	events.AssertNotCalled(t, "HandlePaymentSucceeded", mock.Anything)

	p, err := repo.GetByInvID(ctx, invID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentFailed, p.Status)
	require.NoError(t, repo.UpdateStatus(ctx, invID, domain.IntentCreated, "", ""))

	events.On("HandlePaymentSucceeded", ref).Return(nil).Twice()
	sig := g.signatureForResult("40", invID, shp)
	for i := 0; i < 2; i++ {
		ack, err := g.HandleResultCallback(ctx, "40", invID, sig, shp, "raw")
		require.NoError(t, err)
		assert.Equal(t, "OK"+ref, ack)
	}
	events.AssertExpectations(t)

	p, err = repo.GetByInvID(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPaid, p.Status)
	assert.NotNil(t, p.PaidAt)
}

func TestHandleResultCallback_HandlerErrorIsNotAcknowledged(t *testing.T) {
	g, _ := newTestGateway(t, testConfig())
	events := &mockEventHandler{}
	g.SetEventHandler(events)
	_, invID := createIntent(t, g, 1000)

	events.On("HandlePaymentSucceeded", strconv.FormatInt(invID, 10)).Return(errors.New("db down"))
	_, err := g.HandleResultCallback(context.Background(), "10.00", invID, g.signatureForResult("10.00", invID, nil), nil, "raw")
	assert.Error(t, err)
}

func TestHandleFailCallback(t *testing.T) {
	ctx := context.Background()
	g, repo := newTestGateway(t, testConfig())
	events := &mockEventHandler{}
	g.SetEventHandler(events)
	_, invID := createIntent(t, g, 1000)
	ref := strconv.FormatInt(invID, 10)

	assert.ErrorIs(t, g.HandleFailCallback(ctx, "10.00", invID, "bad", nil, "raw"), ErrInvalidSignature)

	events.On("HandlePaymentFailed", ref).Return(nil).Once()
	sig := g.signatureForFail("10.00", invID, nil)
	require.NoError(t, g.HandleFailCallback(ctx, "10.00", invID, sig, nil, "raw"))
	require.NoError(t, g.HandleFailCallback(ctx, "10.00", invID, sig, nil, "raw"))
	events.AssertExpectations(t)

	p, err := repo.GetByInvID(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentFailed, p.Status)

	assert.ErrorIs(t, g.HandleFailCallback(ctx, "10.00", 42, g.signatureForFail("10.00", 42, nil), nil, "raw"), ErrUnknownReference)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		claims := jwtlib.MapClaims{}
		_, err := jwtlib.ParseWithClaims(string(body), claims, func(*jwtlib.Token) (any, error) {
			return []byte("p3"), nil
		})
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if claims["RefundSum"] != "40.00" || claims["OpKey"] != "key-1" || r.Header.Get("Idempotency-Key") != "key-1" {
			_, _ = w.Write([]byte(`{"success":false,"message":"bad claims"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"requestId":"rq-1"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RefundURL = srv.URL
	g, repo := newTestGateway(t, cfg)
	_, invID := createIntent(t, g, 4000)
	ref := strconv.FormatInt(invID, 10)

	assert.ErrorIs(t, g.Refund(ctx, ref, 4000, "key-1"), ErrNotRefundable)

	_, err := repo.MarkPaidIdempotent(ctx, invID, "raw", time.Now())
	require.NoError(t, err)

	err = g.Refund(ctx, ref, 1000, "key-1")
	assert.ErrorIs(t, err, ErrRefundRejected)

	require.NoError(t, g.Refund(ctx, ref, 4000, "key-1"))
	p, err := repo.GetByInvID(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRefunded, p.Status)
	assert.Equal(t, "rq-1", p.RefundRequest)

	require.NoError(t, g.Refund(ctx, ref, 4000, "key-1"), "refunded intents are acknowledged")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	assert.ErrorIs(t, g.Refund(ctx, "nope", 4000, "key-1"), ErrUnknownReference)
}

func TestHandler_ResultCallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g, _ := newTestGateway(t, testConfig())
	events := &mockEventHandler{}
	g.SetEventHandler(events)
	_, invID := createIntent(t, g, 4000)
	ref := strconv.FormatInt(invID, 10)
	events.On("HandlePaymentSucceeded", ref).Return(nil)

	r := gin.New()
	NewHandler(g, nil).RegisterWebhookRoutes(r.Group("/api/v1"))

	shp := map[string]string{"booking_code": "ELK-20260101-0001"}
	form := url.Values{}
	form.Set("OutSum", "40.00")
	form.Set("InvId", ref)
	form.Set("SignatureValue", g.signatureForResult("40.00", invID, shp))
	form.Set("Shp_booking_code", "ELK-20260101-0001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/result", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK"+ref, w.Body.String())

	form.Set("SignatureValue", "forged")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/result", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type statusWriteFails struct {
	*repository.PaymentIntentRepository
}

func (statusWriteFails) UpdateStatus(context.Context, int64, domain.PaymentIntentStatus, string, string) error {
	return errors.New("disk full")
}

func TestHandleResultCallback_AmountMismatchLogsStatusWriteFailure(t *testing.T) {
	repo := repository.NewPaymentIntentRepository(testutil.NewDB(t))
	var (
		mu    sync.Mutex
		lines []string
	)
	g := NewGateway(statusWriteFails{repo}, testConfig(), func(format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, args...))
	})
	_, invID := createIntent(t, g, 4000)

	_, err := g.HandleResultCallback(context.Background(), "1.00", invID, g.signatureForResult("1.00", invID, nil), nil, "raw")
	assert.ErrorIs(t, err, ErrAmountMismatch)

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "failed to mark intent failed")
	assert.Contains(t, joined, "disk full")
}

func TestHandleResultCallback_AfterFailStillDispatches(t *testing.T) {
	ctx := context.Background()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":true,"requestId":"rq-late"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RefundURL = srv.URL
	g, repo := newTestGateway(t, cfg)
	events := &mockEventHandler{}
	g.SetEventHandler(events)
	_, invID := createIntent(t, g, 1000)
	ref := strconv.FormatInt(invID, 10)

	events.On("HandlePaymentFailed", ref).Return(nil).Once()
	require.NoError(t, g.HandleFailCallback(ctx, "10.00", invID, g.signatureForFail("10.00", invID, nil), nil, "raw"))

	events.On("HandlePaymentSucceeded", ref).Return(nil).Once()
	ack, err := g.HandleResultCallback(ctx, "10.00", invID, g.signatureForResult("10.00", invID, nil), nil, "raw")
	require.NoError(t, err)
	assert.Equal(t, "OK"+ref, ack)
	events.AssertExpectations(t)

	p, err := repo.GetByInvID(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPaid, p.Status, "the captured payment stays refundable")

	require.NoError(t, g.Refund(ctx, ref, 1000, "late-key"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
