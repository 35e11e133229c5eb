package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huntbooking/internal/domain"
	"huntbooking/internal/middleware"
	"huntbooking/internal/pkg/jwt"
	"huntbooking/internal/repository"
	"huntbooking/internal/testutil"
)

type recordingPublisher struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
}

func (p *recordingPublisher) Publish(rec *domain.AuditRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
}

func TestRecord_PersistsSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAuditRepository(testutil.NewDB(t))
	pub := &recordingPublisher{}
	svc := NewService(repo, pub)

	before := &domain.BookingSnapshot{BookingCode: "ELK-20260101-0001", Status: domain.BookingPending, TicketCount: 2}
	after := &domain.BookingSnapshot{BookingCode: "ELK-20260101-0001", Status: domain.BookingPaid, TicketCount: 2}

	rec, err := svc.Record(ctx, Entry{BookingID: 7, EventType: domain.AuditFulfilled, Before: before, After: after})
	require.NoError(t, err)
	assert.Equal(t, SystemActor, rec.Actor)

	list, err := svc.ListForBooking(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
	require.NotNil(t, list[0].AfterState)
	assert.Equal(t, domain.BookingPaid, list[0].AfterState.Status)
	assert.Equal(t, domain.BookingPending, list[0].BeforeState.Status)
	assert.Len(t, pub.records, 1, "outside a transaction the feed is notified at once")
}

func TestRecord_FeedWaitsForCommit(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	tx := repository.NewTransactor(db)
	pub := &recordingPublisher{}
	svc := NewService(repository.NewAuditRepository(db), pub)

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := svc.Record(ctx, Entry{BookingID: 1, EventType: domain.AuditRefunded, Actor: "ops@example.com"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, pub.records)

	list, err := svc.ListForBooking(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := svc.Record(ctx, Entry{BookingID: 1, EventType: domain.AuditRefunded, Actor: "ops@example.com"})
		assert.Empty(t, pub.records)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, pub.records, 1)
}

func TestFeed_StreamsFilteredRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := NewFeed()
	defer feed.Close()

	r := gin.New()
	NewHandler(nil, feed, nil).RegisterRoutes(r.Group("/admin"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/audit/feed?booking_id=5"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Count() == 1 }, time.Second, 10*time.Millisecond)

	feed.Publish(&domain.AuditRecord{BookingID: 4, EventType: domain.AuditCreated})
	feed.Publish(&domain.AuditRecord{BookingID: 5, EventType: domain.AuditFulfilled})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev FeedEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventAuditRecord, ev.Type)
	require.NotNil(t, ev.Payload)
	assert.Equal(t, int64(5), ev.Payload.BookingID)
	assert.Equal(t, domain.AuditFulfilled, ev.Payload.EventType)
}

func TestFeed_BrowserAuthViaSubprotocol(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := NewFeed()
	defer feed.Close()
	tokens := jwt.New("secret", time.Hour)

	r := gin.New()
	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuth(tokens), middleware.AdminOnly())
	NewHandler(nil, feed, nil).RegisterRoutes(admin)
	srv := httptest.NewServer(r)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/audit/feed"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokens.GenerateToken(1, "ops@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	dialer := websocket.Dialer{Subprotocols: []string{middleware.WebSocketTokenProtocol, token}}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, middleware.WebSocketTokenProtocol, conn.Subprotocol())

	require.Eventually(t, func() bool { return feed.Count() == 1 }, time.Second, 10*time.Millisecond)
	feed.Publish(&domain.AuditRecord{BookingID: 9, EventType: domain.AuditRefunded})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev FeedEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, int64(9), ev.Payload.BookingID)
}
