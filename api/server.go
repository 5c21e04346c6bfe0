package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"netprobe/config"
	_ "netprobe/docs"
	"netprobe/logging"
	"netprobe/scanner"
)

const shutdownTimeout = 10 * time.Second

// Run initializes dependencies, starts the scan workers and serves the API
// until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := logging.Logger()

	var (
		store       TaskStore
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		store = NewRedisStore(redisClient)
		logger.Info("using redis task store", "addr", cfg.Redis.Addr)
	} else {
		store = NewMemoryStore()
		logger.Info("using in-memory task store")
	}

	router := NewRouter(cfg, store, redisClient, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	worker := NewWorker(store, scanner.New(scanner.WithLogger(logger)), cfg.Scan.MaxSockets, logger)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.API.Workers; i++ {
		g.Go(func() error {
			return worker.Loop(gctx)
		})
	}
	g.Go(func() error {
		logger.Info("starting netprobe API server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// NewRouter wires middleware and routes. redisClient may be nil, in which
// case rate limiting is kept in memory.
func NewRouter(cfg *config.Config, store TaskStore, redisClient *redis.Client, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(logger), SecurityHeadersMiddleware())

	router.GET("/healthz", healthHandler)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	if cfg.API.Key != "" {
		v1.Use(AuthMiddleware(cfg.API.Key, logger))
	}
	if cfg.API.RateLimit > 0 {
		if redisClient != nil {
			v1.Use(RedisRateLimitMiddleware(redisClient, cfg.API.RateLimit, cfg.API.RateWindow, logger))
		} else {
			v1.Use(MemoryRateLimitMiddleware(cfg.API.RateLimit, cfg.API.RateWindow, logger))
		}
	}

	defaults := scanner.Options{Threads: cfg.Scan.Threads, Timeout: cfg.Scan.Timeout()}
	NewServer(store, defaults).RegisterRoutes(v1)
	return router
}
