// Package push fans room events out to websocket watchers and provides a
// reconnecting client for them.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/xiangqi-server/internal/obslog"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

const (
	defaultQueueSize    = 32
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 5 * time.Second
)

type subscriber struct {
	roomID string
	conn   *websocket.Conn
	send   chan xqdto.Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() { close(s.done) })
}

// Hub serves /ws?room={id} and delivers each room's events to its
// subscribers in order. A subscriber whose queue is full is disconnected.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}

	queueSize    int
	pingInterval time.Duration
	originHosts  []string
	now          func() time.Time
	logger       *zap.Logger

	closed   chan struct{}
	closeOne sync.Once
	wg       sync.WaitGroup
}

type HubOption func(*Hub)

func WithQueueSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithOriginPatterns allows cross-origin handshakes from the given hosts.
func WithOriginPatterns(hosts ...string) HubOption {
	return func(h *Hub) { h.originHosts = append(h.originHosts, hosts...) }
}

func WithLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:        make(map[string]map[*subscriber]struct{}),
		queueSize:    defaultQueueSize,
		pingInterval: defaultPingInterval,
		now:          time.Now,
		logger:       obslog.L(),
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("room"))
	if roomID == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}
	select {
	case <-h.closed:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  h.originHosts,
	})
	if err != nil {
		h.logger.Warn("push_accept_failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	sub := &subscriber{
		roomID: roomID,
		conn:   conn,
		send:   make(chan xqdto.Event, h.queueSize),
		done:   make(chan struct{}),
	}
	h.add(sub)
	h.logger.Debug("push_subscribed", zap.String("room_id", roomID))

	h.wg.Add(1)
	defer h.wg.Done()
	h.serve(r.Context(), sub)
}

// serve runs until the peer goes away, the subscriber is dropped or the hub
// closes. Inbound frames are discarded.
func (h *Hub) serve(ctx context.Context, sub *subscriber) {
	defer h.remove(sub)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	readCtx := sub.conn.CloseRead(ctx)

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-sub.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, sub.conn, ev)
			wcancel()
			if err != nil {
				_ = sub.conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := sub.conn.Ping(pctx)
			pcancel()
			if err != nil {
				_ = sub.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		case <-sub.done:
			_ = sub.conn.Close(websocket.StatusPolicyViolation, "slow consumer")
			return
		case <-h.closed:
			_ = sub.conn.Close(websocket.StatusGoingAway, "server shutdown")
			return
		case <-readCtx.Done():
			_ = sub.conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[sub.roomID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.rooms[sub.roomID] = set
	}
	set[sub] = struct{}{}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.rooms[sub.roomID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.rooms, sub.roomID)
	}
}

// Subscribers reports how many watchers roomID has.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast queues an event for every watcher of roomID. It never blocks.
// 큐가 가득 찬 구독자는 느린 소비자로 보고 연결을 끊는다.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	ev := xqdto.Event{Event: event, RoomID: roomID, At: h.now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error("push_encode_failed", zap.String("room_id", roomID), zap.String("event", event), zap.Error(err))
			return
		}
		ev.Payload = raw
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[roomID] {
		select {
		case sub.send <- ev:
		default:
			h.logger.Warn("push_slow_consumer", zap.String("room_id", roomID), zap.String("event", event))
			sub.drop()
		}
	}
}

// Close disconnects every watcher and waits for their handlers to return.
func (h *Hub) Close(ctx context.Context) error {
	h.closeOne.Do(func() { close(h.closed) })

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
