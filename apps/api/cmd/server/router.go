package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxbridge/packages/go/backend/bridge"
	"voxbridge/packages/go/backend/config"
	"voxbridge/packages/go/backend/di"
)

// server carries what the handlers share. baseCtx outlives single requests
// and ends live sessions on shutdown.
type server struct {
	baseCtx    context.Context
	cfg        config.ServerConfig
	container  *di.Container
	subscriber statusSubscriber
	upgrader   websocket.Upgrader
	bridge     bridge.Config
	logger     *zap.SugaredLogger
}

func newServer(ctx context.Context, cfg config.ServerConfig, container *di.Container, subscriber statusSubscriber, logger *zap.SugaredLogger) *server {
	origins := cfg.AllowedOrigins
	return &server{
		baseCtx:    ctx,
		cfg:        cfg,
		container:  container,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(origins, r.Header.Get("Origin"))
			},
		},
		bridge: bridge.DefaultConfig(),
		logger: logger,
	}
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", healthHandler(s.logger))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/languages", languagesHandler(s.container.Pair, s.logger))
		r.Get("/translator/health", translatorHealthHandler(s.container.Translator, s.logger))
		r.Get("/sessions/{id}/status", sessionStatusHandler(s.subscriber, s.upgrader, s.logger))

		r.Group(func(r chi.Router) {
			if s.cfg.RateLimitPerMinute > 0 {
				r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
			}
			r.Post("/translate", translateHandler(s.container.Translator, s.logger))
			r.Get("/live", liveHandler(s))
		})
	})

	return r
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
