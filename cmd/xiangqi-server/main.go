package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/archive"
	"github.com/park285/xiangqi-server/internal/clock"
	appcfg "github.com/park285/xiangqi-server/internal/config"
	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/httpapi"
	"github.com/park285/xiangqi-server/internal/msgcat"
	"github.com/park285/xiangqi-server/internal/obslog"
	"github.com/park285/xiangqi-server/internal/profile"
	"github.com/park285/xiangqi-server/internal/push"
	"github.com/park285/xiangqi-server/internal/render"
	"github.com/park285/xiangqi-server/internal/robot"
	"github.com/park285/xiangqi-server/internal/room"
	"github.com/park285/xiangqi-server/internal/roomlock"
	"github.com/park285/xiangqi-server/internal/session"
	"github.com/park285/xiangqi-server/internal/store"
)

type closer func() error

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("shutdown_close_failed", zap.Error(err))
			}
		}
	}()

	st, err := openStore(cfg)
	if err != nil {
		logger.Fatal("store init error", zap.Error(err))
	}
	if rs, ok := st.(*store.RedisStore); ok {
		closers = append(closers, rs.Close)
	}

	sink, worker, cleanup, err := openArchive(cfg, logger)
	if err != nil {
		logger.Fatal("archive init error", zap.Error(err))
	}
	closers = append(closers, cleanup...)

	catalog, err := msgcat.New(cfg.MessagesLang, cfg.MessagesDir)
	if err != nil {
		logger.Fatal("message catalog error", zap.Error(err))
	}
	bot, err := robot.New(cfg.RobotPreset)
	if err != nil {
		logger.Fatal("robot preset error", zap.Error(err), zap.Strings("available", robot.AvailablePresets()))
	}

	src := clock.System{}
	locks := roomlock.New()
	hub := push.NewHub(push.WithLogger(obslog.Named("push")))

	rooms, err := room.NewService(st, locks, src,
		room.WithLogger(obslog.Named("room")),
		room.WithDefaults(domain.RoomSettings{
			Visibility:       domain.Public,
			SpectatorLimit:   cfg.SpectatorLimitDefault,
			BaseSeconds:      cfg.BaseSecondsDefault,
			IncrementSeconds: cfg.IncrementSecondsDefault,
		}),
	)
	if err != nil {
		logger.Fatal("room service error", zap.Error(err))
	}
	orch, err := session.New(session.Deps{
		Rooms:    st,
		Games:    st,
		Users:    st,
		Robot:    bot,
		Clock:    src,
		Locks:    locks,
		Logger:   obslog.Named("session"),
		Sink:     sink,
		Notifier: httpapi.NewGameNotifier(hub),
	})
	if err != nil {
		logger.Fatal("session init error", zap.Error(err))
	}
	tokens, err := httpapi.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("token issuer error", zap.Error(err))
	}
	api, err := httpapi.New(httpapi.Deps{
		Rooms:    rooms,
		Sessions: orch,
		Profiles: profile.NewService(st, src, obslog.Named("profile")),
		Tokens:   tokens,
		Renderer: render.NewBoardRenderer(),
		Catalog:  catalog,
		Notifier: hub,
		Logger:   obslog.Named("http"),
	})
	if err != nil {
		logger.Fatal("http api error", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	pushSrv := &http.Server{Addr: cfg.PushAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		errCh <- api.ListenAndServe(cfg.HTTPAddr)
	}()
	go func() {
		logger.Info("push_listen", zap.String("addr", cfg.PushAddr))
		if err := pushSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if worker != nil {
		if err := worker.Start(); err != nil {
			logger.Fatal("archive worker start error", zap.Error(err))
		}
		logger.Info("archive_worker_started", zap.Int("concurrency", cfg.ArchiveQueueConcurrency))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("listener_failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := api.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := hub.Close(ctx); err != nil {
		logger.Warn("push_hub_close_failed", zap.Error(err))
	}
	if err := pushSrv.Shutdown(ctx); err != nil {
		logger.Warn("push_shutdown_failed", zap.Error(err))
	}
	if worker != nil {
		worker.Shutdown()
	}
}

func openStore(cfg *appcfg.AppConfig) (store.Store, error) {
	if cfg.RedisURL == "" {
		return store.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return store.NewRedisStore(ctx, cfg.RedisURL, cfg.RoomTTL)
}

// openArchive picks the result sink: none without a database, the queue when
// ARCHIVE_ASYNC is set, otherwise direct writes.
// 반환된 closer 는 종료 시 역순으로 호출된다.
func openArchive(cfg *appcfg.AppConfig, logger *zap.Logger) (session.ResultSink, *archive.Worker, []closer, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("archive_disabled")
		return nil, nil, nil, nil
	}
	repo, err := archive.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	closers := []closer{repo.Close}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, nil, err
	}
	if !cfg.ArchiveAsync {
		return repo, nil, closers, nil
	}

	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		_ = repo.Close()
		return nil, nil, nil, err
	}
	queue := archive.NewQueue(opt, obslog.Named("archive"))
	closers = append(closers, queue.Close)
	worker := archive.NewWorker(opt, repo, cfg.ArchiveQueueConcurrency, obslog.Named("archive"))
	return queue, worker, closers, nil
}
