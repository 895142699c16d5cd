package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chepyr/go-task-manager/internal/cache"
	"github.com/chepyr/go-task-manager/internal/config"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/handlers"
	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.App)
	slog.SetDefault(logger)

	dbConn, err := db.Open(context.Background(), cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DB.Driver, "err", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	taskCache, rdb := initCache(cfg.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	handler := initHandlers(cfg, dbConn, taskCache, logger)
	defer handler.RateLimiter.Stop()

	server := initServer(cfg.HTTP, handler)
	startServer(server, cfg.HTTP, logger)
}

func initLogger(app config.AppConfig) *slog.Logger {
	level, _ := config.ParseLogLevel(app.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("env", app.Env)
}

// initCache connects to Redis when configured. An unreachable Redis only
// disables caching.
func initCache(cfg config.RedisConfig, logger *slog.Logger) (*cache.TaskCache, *redis.Client) {
	if !cfg.Enabled() {
		logger.Info("redis not configured, task list cache disabled")
		return nil, nil
	}
	opts, err := cfg.ClientOptions()
	if err != nil {
		logger.Warn("invalid redis options, task list cache disabled", "err", err)
		return nil, nil
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis unavailable, task list cache disabled", "addr", cfg.Addr, "err", err)
		rdb.Close()
		return nil, nil
	}
	logger.Info("task list cache enabled", "addr", cfg.Addr, "ttl", cfg.CacheTTL)
	return cache.NewTaskCache(rdb, cfg.CacheTTL), rdb
}

func initHandlers(cfg config.Config, dbConn *sqlx.DB, taskCache *cache.TaskCache, logger *slog.Logger) *handlers.Handler {
	categoryRepo := db.NewCategoryRepository(dbConn)
	return &handlers.Handler{
		Tasks:       service.NewTaskService(db.NewTaskRepository(dbConn), categoryRepo, taskCache, logger),
		Categories:  service.NewCategoryService(categoryRepo, logger),
		Users:       service.NewUserService(db.NewUserRepository(dbConn), logger),
		RateLimiter: handlers.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateLimitWindow),
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL:    cfg.Auth.TokenTTL,
		Log:         logger,
	}
}

func initServer(cfg config.HTTPConfig, handler *handlers.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func startServer(server *http.Server, cfg config.HTTPConfig, logger *slog.Logger) {
	logger.Info("starting server", "addr", server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server failed", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "err", err)
		return
	}
	logger.Info("server stopped")
}
