package httpapi

import (
	"bytes"
	"encoding/json"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/park285/xiangqi-server/internal/clock"
	"github.com/park285/xiangqi-server/internal/msgcat"
	"github.com/park285/xiangqi-server/internal/profile"
	"github.com/park285/xiangqi-server/internal/room"
	"github.com/park285/xiangqi-server/internal/roomlock"
	"github.com/park285/xiangqi-server/internal/session"
	"github.com/park285/xiangqi-server/internal/store"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

type pushed struct {
	roomID  string
	event   string
	payload any
}

type pushRecorder struct {
	mu     sync.Mutex
	events []pushed
}

func (p *pushRecorder) Broadcast(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{roomID, event, payload})
}

func (p *pushRecorder) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

type apiFixture struct {
	handler fasthttp.RequestHandler
	clk     *clock.Manual
	lobby   *pushRecorder
	games   *pushRecorder
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	cat, err := msgcat.New("en", "")
	require.NoError(t, err)
	return newAPIWithCatalog(t, cat)
}

func newAPIWithCatalog(t *testing.T, cat *msgcat.Catalog) *apiFixture {
	t.Helper()
	mem := store.NewMemory()
	locks := roomlock.New()
	clk := clock.NewManual(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	f := &apiFixture{clk: clk, lobby: &pushRecorder{}, games: &pushRecorder{}}

	rooms, err := room.NewService(mem, locks, clk, room.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)
	orch, err := session.New(session.Deps{
		Rooms:    mem,
		Games:    mem,
		Users:    mem,
		Clock:    clk,
		Locks:    locks,
		Notifier: NewGameNotifier(f.games),
	})
	require.NoError(t, err)
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	srv, err := New(Deps{
		Rooms:    rooms,
		Sessions: orch,
		Profiles: profile.NewService(mem, clk, nil),
		Tokens:   tokens,
		Catalog:  cat,
		Notifier: f.lobby,
	})
	require.NoError(t, err)
	f.handler = srv.Handler()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *fasthttp.Response {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if token != "" {
		ctx.Request.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		ctx.Request.SetBody(raw)
	}
	f.handler(&ctx)
	resp := &fasthttp.Response{}
	ctx.Response.CopyTo(resp)
	return resp
}

func decode[T any](t *testing.T, resp *fasthttp.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body(), &v), string(resp.Body()))
	return v
}

func (f *apiFixture) guest(t *testing.T, name string) xqdto.GuestResponse {
	t.Helper()
	resp := f.do(t, fasthttp.MethodPost, "/auth/guest", "", xqdto.GuestRequest{Username: name})
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode(), string(resp.Body()))
	return decode[xqdto.GuestResponse](t, resp)
}

func requireError(t *testing.T, resp *fasthttp.Response, status int, code string) xqdto.ErrorResponse {
	t.Helper()
	require.Equal(t, status, resp.StatusCode(), string(resp.Body()))
	er := decode[xqdto.ErrorResponse](t, resp)
	require.Equal(t, code, er.Error.Code)
	return er
}

func TestGuestRegistration(t *testing.T) {
	f := newAPI(t)
	g := f.guest(t, "alice")
	require.NotEmpty(t, g.Token)
	require.Equal(t, "alice", g.User.DisplayName)

	resp := f.do(t, fasthttp.MethodPost, "/auth/guest", "", xqdto.GuestRequest{Username: "ALICE"})
	requireError(t, resp, fasthttp.StatusConflict, "username_taken")

	resp = f.do(t, fasthttp.MethodPost, "/auth/guest", "", xqdto.GuestRequest{Username: "a b"})
	requireError(t, resp, fasthttp.StatusBadRequest, "invalid_request")

	resp = f.do(t, fasthttp.MethodGet, "/users/"+g.User.ID+"/dashboard", "", nil)
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	d := decode[profile.Dashboard](t, resp)
	require.Len(t, d.Heatmap, profile.HeatmapDays)

	resp = f.do(t, fasthttp.MethodGet, "/users/nobody/dashboard", "", nil)
	requireError(t, resp, fasthttp.StatusNotFound, "not_found")
}

func TestAuthRequired(t *testing.T) {
	f := newAPI(t)
	resp := f.do(t, fasthttp.MethodPost, "/rooms", "", xqdto.CreateRoomRequest{Name: "x"})
	requireError(t, resp, fasthttp.StatusUnauthorized, "unauthorized")

	resp = f.do(t, fasthttp.MethodPost, "/rooms", "not-a-token", xqdto.CreateRoomRequest{Name: "x"})
	requireError(t, resp, fasthttp.StatusUnauthorized, "unauthorized")
}

func TestUnknownRoutesAndRooms(t *testing.T) {
	f := newAPI(t)
	requireError(t, f.do(t, fasthttp.MethodGet, "/nowhere", "", nil), fasthttp.StatusNotFound, "not_found")
	requireError(t, f.do(t, fasthttp.MethodGet, "/rooms/room99", "", nil), fasthttp.StatusNotFound, "not_found")
	requireError(t, f.do(t, fasthttp.MethodDelete, "/rooms/room1/game", "", nil), fasthttp.StatusNotFound, "not_found")
}

func TestRoomDefaultsAndValidation(t *testing.T) {
	f := newAPI(t)
	alice := f.guest(t, "alice")

	resp := f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{Name: "Lunch"})
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode())
	rv := decode[xqdto.RoomView](t, resp)
	require.Equal(t, "room1", rv.Code)
	require.Equal(t, 300, rv.BaseSeconds)
	require.Equal(t, 5, rv.IncrementSeconds)
	require.Equal(t, alice.User.ID, rv.OwnerID)

	zero := 0
	resp = f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{IncrementSeconds: &zero})
	require.Equal(t, 0, decode[xqdto.RoomView](t, resp).IncrementSeconds)

	resp = f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{Visibility: "private"})
	requireError(t, resp, fasthttp.StatusConflict, "password_required")

	resp = f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{Visibility: "secret"})
	requireError(t, resp, fasthttp.StatusBadRequest, "invalid_request")
}

func TestGameOverHTTP(t *testing.T) {
	f := newAPI(t)
	alice := f.guest(t, "alice")
	bob := f.guest(t, "bob")

	resp := f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{Name: "Duel"})
	rv := decode[xqdto.RoomView](t, resp)

	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/join", alice.Token, xqdto.JoinRequest{Role: "red"})
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode(), string(resp.Body()))
	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/game/start", alice.Token, nil)
	requireError(t, resp, fasthttp.StatusConflict, "seats_not_filled")

	resp = f.do(t, fasthttp.MethodPost, "/rooms/"+rv.ID+"/join", bob.Token, xqdto.JoinRequest{Role: "black"})
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	lobby := decode[xqdto.LobbyView](t, resp)
	require.True(t, lobby.CanStart)
	require.Equal(t, []string{
		xqdto.EventLobbyUpdated, xqdto.EventSeatsUpdated,
		xqdto.EventLobbyUpdated, xqdto.EventSeatsUpdated,
	}, f.lobby.names())

	resp = f.do(t, fasthttp.MethodGet, "/rooms/room1/game", "", nil)
	require.Nil(t, decode[xqdto.SnapshotResponse](t, resp).Game)

	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/game/start", bob.Token, nil)
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode(), string(resp.Body()))
	gv := decode[xqdto.GameView](t, resp)
	require.Equal(t, "ongoing", gv.Result)
	require.Equal(t, "red", gv.Clock.SideToMove)

	f.clk.Advance(time.Second)
	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/move", alice.Token, xqdto.MoveRequest{Move: "e3e4"})
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode(), string(resp.Body()))
	gv = decode[xqdto.GameView](t, resp)
	require.Equal(t, "e3e4", gv.LastMove().Notation)
	require.Equal(t, int64(1000), gv.LastMove().TimeSpentMs)
	require.Equal(t, "black", gv.Clock.SideToMove)

	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/move", alice.Token, xqdto.MoveRequest{Move: "a3a4"})
	er := requireError(t, resp, fasthttp.StatusConflict, "not_your_turn")
	require.Equal(t, "It is not your turn.", er.Error.Message)

	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/move", bob.Token, xqdto.MoveRequest{Move: "zz"})
	requireError(t, resp, fasthttp.StatusBadRequest, "invalid_request")

	resp = f.do(t, fasthttp.MethodGet, "/rooms/room1/board.png?side=black", "", nil)
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	require.Equal(t, "image/png", string(resp.Header.ContentType()))
	_, err := png.Decode(bytes.NewReader(resp.Body()))
	require.NoError(t, err)

	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/resign", bob.Token, nil)
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	gv = decode[xqdto.GameView](t, resp)
	require.Equal(t, "red_win", gv.Result)
	require.Equal(t, "resign", gv.ResultReason)
	require.NotNil(t, gv.FinishedAt)

	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/move", bob.Token, xqdto.MoveRequest{Move: "a6a5"})
	requireError(t, resp, fasthttp.StatusConflict, "game_finished")

	require.Equal(t, []string{xqdto.EventGameStarted, xqdto.EventMoveApplied, xqdto.EventGameEnded}, f.games.names())
	f.games.mu.Lock()
	_, isView := f.games.events[0].payload.(*xqdto.GameView)
	f.games.mu.Unlock()
	require.True(t, isView, "game events should carry wire views")
}

func TestFlagOnTimeReturnsGame(t *testing.T) {
	f := newAPI(t)
	alice := f.guest(t, "alice")
	bob := f.guest(t, "bob")
	f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{BaseSeconds: 10})
	f.do(t, fasthttp.MethodPost, "/rooms/room1/join", alice.Token, xqdto.JoinRequest{Role: "red"})
	f.do(t, fasthttp.MethodPost, "/rooms/room1/join", bob.Token, xqdto.JoinRequest{Role: "black"})
	resp := f.do(t, fasthttp.MethodPost, "/rooms/room1/game/start", alice.Token, nil)
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode())

	f.clk.Advance(11 * time.Second)
	from, to := 58, 49
	resp = f.do(t, fasthttp.MethodPost, "/rooms/room1/move", alice.Token, xqdto.MoveRequest{From: &from, To: &to})
	er := requireError(t, resp, fasthttp.StatusConflict, "flagged_on_time")
	require.NotNil(t, er.Game)
	require.Equal(t, "black_win", er.Game.Result)
	require.Equal(t, int64(0), er.Game.Clock.RedMs)
}

func TestTokenIssuer(t *testing.T) {
	ti, err := NewTokenIssuer("k1", time.Minute)
	require.NoError(t, err)
	tok, err := ti.Issue("user-1")
	require.NoError(t, err)
	uid, err := ti.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid)

	other, _ := NewTokenIssuer("k2", time.Minute)
	_, err = other.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := ti.Issue("user-1")
	require.NoError(t, err)
	_, err = ti.Verify(stale)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer(" ", time.Minute)
	require.Error(t, err)

	_, err = bearer("")
	require.ErrorIs(t, err, ErrMissingToken)
	_, err = bearer("Basic abc")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestBoardWithoutCatalog(t *testing.T) {
	f := newAPIWithCatalog(t, nil)
	alice := f.guest(t, "alice")
	resp := f.do(t, fasthttp.MethodPost, "/rooms", alice.Token, xqdto.CreateRoomRequest{Name: "Quiet"})
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode(), string(resp.Body()))

	resp = f.do(t, fasthttp.MethodGet, "/rooms/room1/board.png", "", nil)
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode(), string(resp.Body()))
	_, err := png.Decode(bytes.NewReader(resp.Body()))
	require.NoError(t, err)
}
