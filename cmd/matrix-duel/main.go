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

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/matrix-duel/internal/board"
	"github.com/park285/matrix-duel/internal/config"
	"github.com/park285/matrix-duel/internal/coordinator"
	"github.com/park285/matrix-duel/internal/gateway"
	"github.com/park285/matrix-duel/internal/lobby"
	"github.com/park285/matrix-duel/internal/msgcat"
	"github.com/park285/matrix-duel/internal/obslog"
	"github.com/park285/matrix-duel/internal/results"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	clock := clockwork.NewRealClock()

	var rdb *redis.Client
	var limiter lobby.Limiter
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = lobby.OpenRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		limiter = lobby.NewRedisLimiter(rdb, cfg.RoomCreateCooldown())
	} else {
		limiter = lobby.NewMemoryLimiter(clock, cfg.RoomCreateCooldown())
	}

	var repo *results.Repository
	if cfg.DatabaseURL != "" {
		repo, err = results.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database_init_error", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Fatal("database_schema_error", zap.Error(err))
		}
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_init_error", zap.Error(err))
	}

	gen := board.NewGenerator(cfg.Board(), nil)
	reg := lobby.NewRegistry(limiter, lobby.WithLogger(obslog.Named("lobby")))
	hub := gateway.NewHub(obslog.Named("hub"))

	opts := []coordinator.Option{
		coordinator.WithClock(clock),
		coordinator.WithMessages(catalog),
		coordinator.WithLogger(obslog.Named("coordinator")),
	}
	if repo != nil {
		opts = append(opts, coordinator.WithArchive(repo))
	}
	coord := coordinator.New(reg, gen, hub, coordinator.Settings{
		RevealDelay:  cfg.RevealDelay(),
		GraceDelay:   cfg.DisconnectGrace(),
		EmptyRoomTTL: cfg.EmptyRoomTTL(),
	}, opts...)

	gw := gateway.NewServer(coord, hub, gateway.Info{
		Listen:         cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		Fairness:       cfg.Fairness.Enabled,
		RubberBand:     cfg.Fairness.Enabled && cfg.Fairness.RubberBand,
		Limiter:        reg.LimiterName(),
	}, gateway.WithMessages(catalog), gateway.WithLogger(obslog.Named("gateway")))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_start",
			zap.String("listen", cfg.ListenAddr),
			zap.Bool("fairness", cfg.Fairness.Enabled),
			zap.Bool("rubber_band", cfg.Fairness.RubberBand),
			zap.String("limiter", reg.LimiterName()),
			zap.Bool("archive", repo != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("server_shutdown", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	gw.Close()
	coord.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = repo.Close()
}
