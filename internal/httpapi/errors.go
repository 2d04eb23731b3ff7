package httpapi

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/profile"
	"github.com/park285/xiangqi-server/internal/room"
	"github.com/park285/xiangqi-server/internal/session"
	"github.com/park285/xiangqi-server/internal/store"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

var (
	errBadRequest = errors.New("malformed request")
	errNotFound   = errors.New("route not found")
)

// classify maps an error to its HTTP status and wire form.
func (s *Server) classify(err error) (int, xqdto.DomainError) {
	if rej, ok := domain.AsRejection(err); ok {
		return fasthttp.StatusConflict, xqdto.DomainError{
			Code:    rej.Code,
			Message: s.catalog.Rejection(rej.Code, rej.Message),
		}
	}
	switch {
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken):
		return fasthttp.StatusUnauthorized, xqdto.DomainError{Code: "unauthorized", Message: err.Error()}
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, session.ErrRoomNotFound),
		errors.Is(err, session.ErrGameNotFound), errors.Is(err, profile.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound), errors.Is(err, errNotFound):
		return fasthttp.StatusNotFound, xqdto.DomainError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, store.ErrUsernameTaken):
		return fasthttp.StatusConflict, xqdto.DomainError{Code: "username_taken", Message: err.Error()}
	case errors.Is(err, errBadRequest), errors.Is(err, room.ErrInvalidSettings), errors.Is(err, room.ErrInvalidArgs),
		errors.Is(err, session.ErrInvalidSquare), errors.Is(err, profile.ErrInvalidUsername):
		return fasthttp.StatusBadRequest, xqdto.DomainError{Code: "invalid_request", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fasthttp.StatusServiceUnavailable, xqdto.DomainError{Code: "unavailable", Message: "request timed out", Retryable: true}
	}
	return fasthttp.StatusInternalServerError, xqdto.DomainError{Code: "internal", Message: "internal error", Retryable: true}
}

// fail writes err. game rides along when the failed action still changed it,
// as with a loss on time.
func (s *Server) fail(ctx *fasthttp.RequestCtx, err error, game *domain.Game) {
	status, body := s.classify(err)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("http_request_failed",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Error(err))
	}
	s.writeJSON(ctx, status, xqdto.ErrorResponse{Error: body, Game: GameView(game)})
}
