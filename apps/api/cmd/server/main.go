// Package main contains the voxbridge API server entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voxbridge/packages/go/backend/config"
	"voxbridge/packages/go/backend/di"
	"voxbridge/packages/go/backend/status"
	"voxbridge/packages/go/backend/translation"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	var opts []config.Option
	if *configPath != "" {
		opts = append(opts, config.WithConfigFile(*configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorw("server failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) error {
	translator, err := translation.New(cfg.Translation.Registry(), logger)
	if err != nil {
		return err
	}
	pair, err := cfg.Pair()
	if err != nil {
		return err
	}

	publisher := status.Discard
	var subscriber statusSubscriber
	if cfg.Redis.Enabled() {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Errorw("failed to close redis client", "error", err)
			}
		}()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		publisher = status.NewRedisStatusPublisher(client)
		subscriber = status.NewRedisStatusSubscriber(client)
		logger.Infow("status mirror enabled", "redisAddr", cfg.Redis.Addr)
	}

	container := di.NewContainer(
		di.WithTranslator(translator),
		di.WithPublisher(publisher),
		di.WithLogger(logger),
		di.WithPair(pair),
		di.WithAutoPlayDelay(cfg.Playback.AutoPlayDelay),
		di.WithProbeOnStart(true),
	)

	srv := newServer(ctx, cfg.Server, container, subscriber, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("server listening", "addr", cfg.Server.Addr, "provider", translator.Name(), "direction", pair.Forward().String())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
		if closeErr := httpServer.Close(); closeErr != nil {
			logger.Errorw("forced close failed", "error", closeErr)
		}
	}
	logger.Infow("server stopped")
	return nil
}

func healthHandler(logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, `{"status":"ok"}`); err != nil {
			logger.Errorw("failed to write health response", "error", err)
		}
	}
}

func loggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"statusCode", ww.Status(),
				"duration", time.Since(start),
				"requestID", middleware.GetReqID(r.Context()),
			)
		})
	}
}
