package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/aap01152/hymnboard/internal/config"
	"github.com/aap01152/hymnboard/internal/database"
	"github.com/aap01152/hymnboard/internal/display"
	"github.com/aap01152/hymnboard/internal/logging"
	"github.com/aap01152/hymnboard/internal/planner"
	"github.com/aap01152/hymnboard/internal/session"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := display.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Metrics listener started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics listener failed", "error", err)
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	hymns := database.NewHymnRepo(pool)
	services := database.NewServiceRepo(pool)
	plan := planner.New(services, hymns, clock)
	publisher := display.NewPublisher(redisClient)
	manager := session.NewManager(plan, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Coming to the foreground: sync the view with the store, and make sure
	// a service for today exists.
	if err := manager.Foreground(ctx); err != nil {
		slog.Error("Failed to load current service", "error", err)
		os.Exit(1)
	}
	if manager.Current() == nil {
		if _, err := manager.StartTodaysService(ctx); err != nil {
			slog.Error("Failed to start today's service", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Current service loaded", "service_id", manager.Current().Service.ID.String())

	watcher := display.NewWatcher(redisClient, manager.DisplayAttached, manager.DisplayDetached)
	go watcher.Run(ctx)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")

	// Going to the background: flush buffered edits before letting go of the
	// store.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := manager.Background(shutdownCtx); err != nil {
		slog.Error("Failed to flush session state", "error", err)
	}
	cancel()
}
