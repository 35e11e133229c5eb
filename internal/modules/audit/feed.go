package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"huntbooking/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// FeedEvent is pushed to admin clients for every committed audit record.
type FeedEvent struct {
	Type    string              `json:"type"`
	Payload *domain.AuditRecord `json:"payload"`
}

const EventAuditRecord = "audit_record"

type subscriber struct {
	actor     string
	conn      *websocket.Conn
	send      chan []byte
	bookingID int64 // 0 = all bookings
}

// Feed fans committed audit records out to connected admin websockets.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[*subscriber]struct{})}
}

func (f *Feed) register(s *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers[s] = struct{}{}
}

func (f *Feed) unregister(s *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[s]; ok {
		delete(f.subscribers, s)
		close(s.send)
	}
}

func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

func (f *Feed) Publish(rec *domain.AuditRecord) {
	data, err := json.Marshal(&FeedEvent{Type: EventAuditRecord, Payload: rec})
	if err != nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for s := range f.subscribers {
		if s.bookingID != 0 && s.bookingID != rec.BookingID {
			continue
		}
		select {
		case s.send <- data:
		default:
			// slow client, drop
		}
	}
}

// Serve runs the connection until the client goes away.
func (f *Feed) Serve(conn *websocket.Conn, actor string, bookingID int64) {
	s := &subscriber{
		actor:     actor,
		conn:      conn,
		send:      make(chan []byte, 64),
		bookingID: bookingID,
	}
	f.register(s)

	go f.writePump(s)
	f.readPump(s)
}

func (f *Feed) readPump(s *subscriber) {
	defer func() {
		f.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// clients only send control frames; anything else is drained
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close drops every subscriber; used on shutdown.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subscribers {
		delete(f.subscribers, s)
		close(s.send)
	}
}
