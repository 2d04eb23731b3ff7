package push

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/xiangqi-server/pkg/xqdto"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type EventCallback func(ev *xqdto.Event)

type StateCallback func(state State)

// HeaderProvider injects headers into the handshake, e.g. Authorization.
type HeaderProvider func() map[string]string

// Watcher follows one room's event stream and redials with backoff when the
// connection drops.
type Watcher struct {
	url string

	conn  *websocket.Conn
	connM sync.Mutex

	state  State
	stateM sync.RWMutex

	eventCbs []EventCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	headers              HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewWatcher builds a client for the room stream at baseURL, e.g.
// ws://localhost:8081/ws.
func NewWatcher(baseURL, roomID string, maxReconnectAttempts int) *Watcher {
	u := strings.TrimRight(baseURL, "/")
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return &Watcher{
		url:                  u + sep + "room=" + roomID,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         defaultPingInterval,
		stopCh:               make(chan struct{}),
	}
}

func (w *Watcher) SetHeaderProvider(h HeaderProvider) { w.headers = h }

func (w *Watcher) State() State {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

func (w *Watcher) Connect(ctx context.Context) error {
	if s := w.State(); s == StateConnected || s == StateConnecting {
		return nil
	}

	w.rootCtx, w.rootCancel = context.WithCancel(context.Background())
	w.setState(StateConnecting)

	conn, err := w.dial(ctx)
	if err != nil {
		w.setState(StateFailed)
		w.scheduleReconnect()
		return err
	}
	w.attach(conn)
	return nil
}

func (w *Watcher) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, w.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.buildHeaders(),
	})
	return conn, err
}

func (w *Watcher) attach(conn *websocket.Conn) {
	w.connM.Lock()
	w.conn = conn
	w.connM.Unlock()
	w.setState(StateConnected)

	w.wg.Add(2)
	go w.listen(conn)
	go w.pingLoop(conn)
}

func (w *Watcher) listen(conn *websocket.Conn) {
	defer w.wg.Done()
	for {
		var ev xqdto.Event
		if err := wsjson.Read(w.rootCtx, conn, &ev); err != nil {
			if w.isStopping() {
				return
			}
			w.lost(conn, "reconnect")
			return
		}

		w.cbM.RLock()
		callbacks := append([]EventCallback(nil), w.eventCbs...)
		w.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(&ev)
		}
	}
}

func (w *Watcher) pingLoop(conn *websocket.Conn) {
	defer w.wg.Done()
	t := time.NewTicker(w.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-w.stopCh:
			return
		case <-w.rootCtx.Done():
			return
		case <-t.C:
			if !w.current(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(w.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if !w.isStopping() {
					w.lost(conn, "ping failure")
				}
				return
			}
		}
	}
}

// lost tears down conn once; the first of listen or pingLoop to notice wins.
// 종료 중이 아니면 재연결 예약.
func (w *Watcher) lost(conn *websocket.Conn, reason string) {
	w.connM.Lock()
	if w.conn != conn {
		w.connM.Unlock()
		return
	}
	w.conn = nil
	w.connM.Unlock()

	_ = conn.Close(websocket.StatusGoingAway, reason)
	w.setState(StateDisconnected)
	w.scheduleReconnect()
}

func (w *Watcher) current(conn *websocket.Conn) bool {
	w.connM.Lock()
	defer w.connM.Unlock()
	return w.conn == conn
}

func (w *Watcher) scheduleReconnect() {
	if w.maxReconnectAttempts <= 0 || w.isStopping() {
		return
	}
	w.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= w.maxReconnectAttempts; attempt++ {
			select {
			case <-w.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := w.dial(w.rootCtx)
			if err != nil {
				continue
			}
			if w.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			w.attach(conn)
			return
		}
		w.setState(StateFailed)
	}()
}

func (w *Watcher) OnEvent(cb EventCallback) {
	if cb == nil {
		return
	}
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.eventCbs = append(w.eventCbs, cb)
}

func (w *Watcher) OnStateChange(cb StateCallback) {
	if cb == nil {
		return
	}
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.stateCbs = append(w.stateCbs, cb)
}

func (w *Watcher) setState(state State) {
	w.stateM.Lock()
	w.state = state
	w.stateM.Unlock()

	w.cbM.RLock()
	callbacks := append([]StateCallback(nil), w.stateCbs...)
	w.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (w *Watcher) Close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })

	w.connM.Lock()
	conn := w.conn
	w.conn = nil
	w.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	if w.rootCancel != nil {
		w.rootCancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		w.setState(StateDisconnected)
		return nil
	}
}

func (w *Watcher) isStopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Watcher) buildHeaders() http.Header {
	hdr := http.Header{}
	if w.headers == nil {
		return hdr
	}
	for k, v := range w.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}
