// Package httpapi exposes rooms, games and player dashboards over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/msgcat"
	"github.com/park285/xiangqi-server/internal/obslog"
	"github.com/park285/xiangqi-server/internal/profile"
	"github.com/park285/xiangqi-server/internal/render"
	"github.com/park285/xiangqi-server/internal/room"
	"github.com/park285/xiangqi-server/internal/session"
)

const requestTimeout = 10 * time.Second

type Deps struct {
	Rooms    *room.Service
	Sessions *session.Orchestrator
	Profiles *profile.Service
	Tokens   *TokenIssuer
	Renderer render.BoardRenderer
	Catalog  *msgcat.Catalog
	// Notifier receives lobby and seat events. Game events come from the
	// orchestrator's own notifier.
	Notifier session.Notifier
	Logger   *zap.Logger
}

type Server struct {
	rooms    *room.Service
	sessions *session.Orchestrator
	profiles *profile.Service
	tokens   *TokenIssuer
	renderer render.BoardRenderer
	catalog  *msgcat.Catalog
	notifier session.Notifier
	logger   *zap.Logger

	srv *fasthttp.Server
}

func New(d Deps) (*Server, error) {
	if d.Rooms == nil || d.Sessions == nil || d.Profiles == nil || d.Tokens == nil {
		return nil, errors.New("httpapi: rooms, sessions, profiles and tokens are required")
	}
	s := &Server{
		rooms:    d.Rooms,
		sessions: d.Sessions,
		profiles: d.Profiles,
		tokens:   d.Tokens,
		renderer: d.Renderer,
		catalog:  d.Catalog,
		notifier: d.Notifier,
		logger:   d.Logger,
	}
	if s.renderer == nil {
		s.renderer = render.NewBoardRenderer()
	}
	if s.logger == nil {
		s.logger = obslog.L()
	}
	s.srv = &fasthttp.Server{
		Name:               "xiangqi-server",
		Handler:            s.Handler(),
		ReadTimeout:        requestTimeout,
		WriteTimeout:       requestTimeout,
		MaxRequestBodySize: 64 << 10,
	}
	return s, nil
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return s.serve
}

func (s *Server) ListenAndServe(addr string) error {
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) serve(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("http_panic", zap.Any("panic", rec), zap.ByteString("path", ctx.Path()))
			s.fail(ctx, fmt.Errorf("panic: %v", rec), nil)
		}
		s.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)))
	}()
	s.route(ctx)
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")

	switch {
	case method == fasthttp.MethodGet && len(parts) == 1 && parts[0] == "healthz":
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]bool{"ok": true})
	case method == fasthttp.MethodPost && len(parts) == 2 && parts[0] == "auth" && parts[1] == "guest":
		s.handleGuest(ctx)
	case method == fasthttp.MethodGet && len(parts) == 3 && parts[0] == "users" && parts[2] == "dashboard":
		s.handleDashboard(ctx, parts[1])
	case method == fasthttp.MethodPost && len(parts) == 1 && parts[0] == "rooms":
		s.handleCreateRoom(ctx)
	case len(parts) >= 2 && parts[0] == "rooms":
		s.routeRoom(ctx, method, parts[1], strings.Join(parts[2:], "/"))
	default:
		s.fail(ctx, errNotFound, nil)
	}
}

func (s *Server) routeRoom(ctx *fasthttp.RequestCtx, method, idOrCode, rest string) {
	type route struct{ method, rest string }
	handlers := map[route]func(*fasthttp.RequestCtx, string){
		{fasthttp.MethodGet, ""}:            s.handleGetRoom,
		{fasthttp.MethodGet, "lobby"}:       s.handleLobby,
		{fasthttp.MethodPost, "join"}:       s.handleJoin,
		{fasthttp.MethodPost, "wait"}:       s.handleWait,
		{fasthttp.MethodPost, "leave"}:      s.handleLeave,
		{fasthttp.MethodPost, "seat"}:       s.handleSeat,
		{fasthttp.MethodPost, "unseat"}:     s.handleUnseat,
		{fasthttp.MethodPost, "ban"}:        s.handleBan,
		{fasthttp.MethodPost, "game/start"}: s.handleStart,
		{fasthttp.MethodGet, "game"}:        s.handleSnapshot,
		{fasthttp.MethodGet, "board.png"}:   s.handleBoard,
		{fasthttp.MethodPost, "move"}:       s.handleMove,
		{fasthttp.MethodPost, "resign"}:     s.handleResign,
	}
	h, ok := handlers[route{method, rest}]
	if !ok {
		s.fail(ctx, errNotFound, nil)
		return
	}
	h(ctx, idOrCode)
}

// requestContext bounds a handler's work. fasthttp recycles the RequestCtx,
// so it is not handed to services directly.
// 핸들러 반환 후 RequestCtx 재사용에 주의.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// actor returns the user id from the bearer token.
func (s *Server) actor(ctx *fasthttp.RequestCtx) (string, error) {
	raw, err := bearer(string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
	if err != nil {
		return "", err
	}
	return s.tokens.Verify(raw)
}

func decodeBody(ctx *fasthttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_failed", zap.Error(err))
		ctx.Error(`{"error":{"code":"internal","message":"encode failed","retryable":true}}`, fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

func (s *Server) push(roomID, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(roomID, event, payload)
}

type roomCall struct {
	ctx    context.Context
	roomID string
	userID string
}
