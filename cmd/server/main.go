package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "livepolls/docs"
	"livepolls/internal/broadcast"
	"livepolls/internal/config"
	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/tally"
	"livepolls/internal/domain/vote"
	api "livepolls/internal/http"
	"livepolls/internal/metrics"
	"livepolls/internal/platform/database"
	jwtpkg "livepolls/internal/platform/jwt"
	"livepolls/internal/platform/redisclient"
	"livepolls/internal/ratelimit"
	"livepolls/internal/repository/memory"
	"livepolls/internal/repository/postgres"
	"livepolls/internal/worker"
)

// ledger is everything the services and the reaper need from the store.
type ledger struct {
	polls   poll.Repository
	reads   tally.Store
	votes   vote.Store
	reaping worker.ExpiredPollDeleter
}

// @title           Live Polls API
// @version         1.0
// @description     Real-time polls with transactional voting and WebSocket fan-out
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	cfg := config.Load()
	metrics.Register()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		db    *sql.DB
		store ledger
	)
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory store, data is lost on exit")
		mem := memory.NewStore()
		store = ledger{polls: mem, reads: mem, votes: mem, reaping: mem}
	default:
		var err error
		db, err = database.NewPostgres(ctx, cfg.DB_DSN)
		if err != nil {
			logger.Error("db connect error", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			logger.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		pollRepo := postgres.NewPollRepo(db)
		store = ledger{polls: pollRepo, reads: pollRepo, votes: postgres.NewVoteRepo(db, logger), reaping: pollRepo}
	}

	var rdb *redis.Client
	if cfg.RateLimitBackend == "redis" {
		var err error
		rdb, err = redisclient.New(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// The limiter fails open per call and the reaper sweeps without
			// its lock, so a cold Redis only degrades the service.
			logger.Warn("redis not reachable at startup", "event", "redis_degraded", "addr", cfg.RedisAddr, "error", err)
		}
		defer rdb.Close()
	}

	var window ratelimit.Window
	var locker worker.Locker
	if rdb != nil {
		window = ratelimit.NewRedisWindow(rdb)
		locker = worker.NewRedisLocker(rdb, 10*time.Minute)
	} else {
		mw := ratelimit.NewMemoryWindow()
		go mw.RunSweeper(ctx, cfg.VoteRateWindow)
		window = mw
	}
	limiter := ratelimit.NewLimiter(window, cfg.VoteRateLimit, cfg.VoteRateWindow, logger)

	hub := broadcast.NewHub(logger)
	projector := tally.NewProjector(store.reads)

	pollSvc := poll.NewService(store.polls, projector, hub, logger)
	voteSvc := vote.NewService(store.votes, projector, hub, cfg.VoteTxTimeout, logger)

	reaper := worker.NewReaper(store.reaping, cfg.ReaperInterval, cfg.ReaperRetention, locker, logger)
	go reaper.Run(ctx)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "")

	router := api.NewRouter(api.Deps{
		Polls:         pollSvc,
		Votes:         voteSvc,
		JWT:           jwtMgr,
		JWTTTL:        cfg.JWTTTL,
		Limiter:       limiter,
		Hub:           hub,
		DB:            db,
		WSConnectRate: cfg.WSConnectRate,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "store", cfg.StoreBackend, "rate_limit", cfg.RateLimitBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
