package httpapi

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/render"
	"github.com/park285/xiangqi-server/internal/room"
	"github.com/park285/xiangqi-server/internal/xiangqi"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

func (s *Server) handleGuest(ctx *fasthttp.RequestCtx) {
	var req xqdto.GuestRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	c, cancel := requestContext()
	defer cancel()

	u, err := s.profiles.Register(c, req.Username, req.DisplayName)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, xqdto.GuestResponse{User: UserView(u), Token: token})
}

func (s *Server) handleDashboard(ctx *fasthttp.RequestCtx, userID string) {
	c, cancel := requestContext()
	defer cancel()
	d, err := s.profiles.Dashboard(c, userID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, d)
}

func (s *Server) handleCreateRoom(ctx *fasthttp.RequestCtx) {
	uid, err := s.actor(ctx)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	var req xqdto.CreateRoomRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	settings := domain.RoomSettings{
		Visibility:       domain.Visibility(strings.ToLower(strings.TrimSpace(req.Visibility))),
		AllowUndo:        req.AllowUndo,
		Rated:            req.Rated,
		SpectatorLimit:   req.SpectatorLimit,
		VsRobot:          req.VsRobot,
		RobotSide:        req.RobotSide,
		BaseSeconds:      req.BaseSeconds,
		IncrementSeconds: s.rooms.Defaults().IncrementSeconds,
	}
	if req.IncrementSeconds != nil {
		settings.IncrementSeconds = *req.IncrementSeconds
	}

	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Create(c, room.CreateRequest{
		OwnerID:  uid,
		Name:     req.Name,
		Settings: settings,
		Password: req.Password,
	})
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, RoomView(r))
}

func (s *Server) handleGetRoom(ctx *fasthttp.RequestCtx, idOrCode string) {
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, RoomView(r))
}

func (s *Server) handleLobby(ctx *fasthttp.RequestCtx, idOrCode string) {
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	l, err := s.rooms.Lobby(c, r.ID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, LobbyView(l))
}

// mutateRoom runs one membership change for the token's user, then answers
// with the fresh lobby and pushes it to the room.
func (s *Server) mutateRoom(ctx *fasthttp.RequestCtx, idOrCode string, body any, seats bool, fn func(c roomCall) error) {
	uid, err := s.actor(ctx)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	if body != nil {
		if err := decodeBody(ctx, body); err != nil {
			s.fail(ctx, err, nil)
			return
		}
	}
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	if err := fn(roomCall{ctx: c, roomID: r.ID, userID: uid}); err != nil {
		s.fail(ctx, err, nil)
		return
	}

	l, err := s.rooms.Lobby(c, r.ID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	view := LobbyView(l)
	s.push(r.ID, xqdto.EventLobbyUpdated, view)
	if seats {
		s.push(r.ID, xqdto.EventSeatsUpdated, view)
	}
	s.writeJSON(ctx, fasthttp.StatusOK, view)
}

func (s *Server) handleJoin(ctx *fasthttp.RequestCtx, idOrCode string) {
	var req xqdto.JoinRequest
	s.mutateRoom(ctx, idOrCode, &req, true, func(c roomCall) error {
		return s.rooms.Join(c.ctx, c.roomID, c.userID, room.ParseRole(req.Role), req.Password)
	})
}

func (s *Server) handleWait(ctx *fasthttp.RequestCtx, idOrCode string) {
	var req xqdto.WaitRequest
	s.mutateRoom(ctx, idOrCode, &req, false, func(c roomCall) error {
		return s.rooms.JoinWaiting(c.ctx, c.roomID, c.userID, req.Password)
	})
}

func (s *Server) handleLeave(ctx *fasthttp.RequestCtx, idOrCode string) {
	s.mutateRoom(ctx, idOrCode, nil, true, func(c roomCall) error {
		return s.rooms.Leave(c.ctx, c.roomID, c.userID)
	})
}

func (s *Server) handleSeat(ctx *fasthttp.RequestCtx, idOrCode string) {
	var req xqdto.SeatRequest
	s.mutateRoom(ctx, idOrCode, &req, true, func(c roomCall) error {
		return s.rooms.AssignSeat(c.ctx, c.roomID, c.userID, req.UserID, room.ParseRole(req.Role))
	})
}

func (s *Server) handleUnseat(ctx *fasthttp.RequestCtx, idOrCode string) {
	var req xqdto.UnseatRequest
	s.mutateRoom(ctx, idOrCode, &req, true, func(c roomCall) error {
		return s.rooms.UnassignSeat(c.ctx, c.roomID, c.userID, room.ParseRole(req.Role))
	})
}

func (s *Server) handleBan(ctx *fasthttp.RequestCtx, idOrCode string) {
	var req xqdto.BanRequest
	s.mutateRoom(ctx, idOrCode, &req, true, func(c roomCall) error {
		return s.rooms.Ban(c.ctx, c.roomID, c.userID, req.UserID)
	})
}

// handleStart needs a token but not a particular seat: anyone in the room
// may start once both seats are filled.
func (s *Server) handleStart(ctx *fasthttp.RequestCtx, idOrCode string) {
	if _, err := s.actor(ctx); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	g, err := s.sessions.Start(c, r.ID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, GameView(g))
}

func (s *Server) handleSnapshot(ctx *fasthttp.RequestCtx, idOrCode string) {
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	g, err := s.sessions.Snapshot(c, r.ID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, xqdto.SnapshotResponse{Game: GameView(g)})
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, idOrCode string) {
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	g, err := s.sessions.Snapshot(c, r.ID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}

	pos := xiangqi.Start()
	opts := render.RenderOptions{}
	if g != nil {
		if pos, err = xiangqi.ParseFEN(g.CurrentFEN); err != nil {
			s.fail(ctx, err, nil)
			return
		}
		if last := g.LastMove(); last != nil {
			opts.Highlight = &render.MoveHighlight{From: last.From, To: last.To}
		}
	}
	if side := string(ctx.QueryArgs().Peek("side")); side != "" {
		if opts.Perspective, err = xiangqi.ParseSide(side); err != nil {
			s.fail(ctx, fmt.Errorf("%w: side %q", errBadRequest, side), nil)
			return
		}
	}
	opts.Header = s.caption(r, g, pos)

	png, err := s.renderer.RenderPNG(c, pos, opts)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

func (s *Server) caption(r *domain.Room, g *domain.Game, pos xiangqi.Position) string {
	key := "board.caption"
	data := map[string]any{"Room": r.Code, "Ply": 0, "Side": pos.SideToMove.String()}
	if g != nil {
		data["Ply"] = len(g.Moves)
		if g.Finished() {
			key = "board.result"
			data["Result"] = string(g.Result)
			data["Reason"] = g.ResultReason
		}
	}
	text, err := s.catalog.Render(key, data)
	if err != nil {
		s.logger.Debug("board_caption_missing", zap.String("key", key), zap.Error(err))
		return r.Code
	}
	return text
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx, idOrCode string) {
	uid, err := s.actor(ctx)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	var req xqdto.MoveRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	mv, err := moveFromRequest(req)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}

	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	g, err := s.sessions.TryMove(c, r.ID, uid, mv.From, mv.To)
	if err != nil {
		// a flag on time returns the finished game with the rejection
		s.fail(ctx, err, g)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, GameView(g))
}

func moveFromRequest(req xqdto.MoveRequest) (xiangqi.Move, error) {
	if strings.TrimSpace(req.Move) != "" {
		mv, err := xiangqi.ParseMove(req.Move)
		if err != nil {
			return xiangqi.Move{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return mv, nil
	}
	if req.From == nil || req.To == nil {
		return xiangqi.Move{}, fmt.Errorf("%w: from and to are required", errBadRequest)
	}
	return xiangqi.Move{From: *req.From, To: *req.To}, nil
}

func (s *Server) handleResign(ctx *fasthttp.RequestCtx, idOrCode string) {
	uid, err := s.actor(ctx)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	c, cancel := requestContext()
	defer cancel()
	r, err := s.rooms.Resolve(c, idOrCode)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	g, err := s.sessions.Resign(c, r.ID, uid)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, GameView(g))
}
