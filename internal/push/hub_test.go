package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/xiangqi-server/pkg/xqdto"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func waitSubscribers(t *testing.T, h *Hub, roomID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Subscribers(roomID) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, _, err := websocket.Dial(ctx, wsURL(srv)+"?room=r1", nil)
	require.NoError(t, err)
	defer a.Close(websocket.StatusNormalClosure, "")
	b, _, err := websocket.Dial(ctx, wsURL(srv)+"?room=r2", nil)
	require.NoError(t, err)
	defer b.Close(websocket.StatusNormalClosure, "")

	waitSubscribers(t, hub, "r1", 1)
	waitSubscribers(t, hub, "r2", 1)

	hub.Broadcast("r1", xqdto.EventMoveApplied, map[string]int{"ply": 1})
	hub.Broadcast("r2", xqdto.EventGameEnded, nil)

	var ev xqdto.Event
	require.NoError(t, wsjson.Read(ctx, a, &ev))
	require.Equal(t, xqdto.EventMoveApplied, ev.Event)
	require.Equal(t, "r1", ev.RoomID)
	var payload map[string]int
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.Equal(t, 1, payload["ply"])

	require.NoError(t, wsjson.Read(ctx, b, &ev))
	require.Equal(t, xqdto.EventGameEnded, ev.Event)
	require.Empty(t, ev.Payload)
}

func TestMissingRoomIsBadRequest(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisconnectUnsubscribes(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, wsURL(srv)+"?room=r1", nil)
	require.NoError(t, err)
	waitSubscribers(t, hub, "r1", 1)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))
	waitSubscribers(t, hub, "r1", 0)
	require.NoError(t, hub.Close(ctx))
}

func TestWatcherReceivesEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	w := NewWatcher(wsURL(srv), "r9", 0)
	states := make(chan State, 8)
	w.OnStateChange(func(s State) { states <- s })
	events := make(chan xqdto.Event, 4)
	w.OnEvent(func(ev *xqdto.Event) { events <- *ev })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Connect(ctx))
	require.Equal(t, StateConnected, w.State())
	waitSubscribers(t, hub, "r9", 1)

	hub.Broadcast("r9", xqdto.EventGameStarted, nil)
	select {
	case ev := <-events:
		require.Equal(t, xqdto.EventGameStarted, ev.Event)
	case <-ctx.Done():
		t.Fatal("no event delivered")
	}

	require.NoError(t, w.Close(ctx))
	require.Equal(t, StateDisconnected, w.State())
	require.NoError(t, hub.Close(ctx))

	require.Equal(t, StateConnecting, <-states)
	require.Equal(t, StateConnected, <-states)
}

func TestWatcherDialFailureWithoutRetries(t *testing.T) {
	w := NewWatcher("ws://127.0.0.1:1/ws", "r1", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, w.Connect(ctx))
	require.Equal(t, StateFailed, w.State())
	require.NoError(t, w.Close(ctx))
}

func TestBackoffIsCapped(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, backoffDuration(0))
	require.Equal(t, 400*time.Millisecond, backoffDuration(3))
	require.Equal(t, backoffDuration(6), backoffDuration(20))
}
