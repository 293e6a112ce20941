package api

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/azybler/waymap/pkg/metrics"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
	CORSOrigin     string
	// RateLimit is the sustained requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		RequestTimeout: 5 * time.Second,
		MaxConcurrent:  runtime.NumCPU() * 2,
	}
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(cfg ServerConfig, h *Handlers) http.Handler {
	log := zap.L().With(zap.String("component", "http"))

	r := chi.NewRouter()
	r.Use(accessLog(log))
	r.Use(recoverer(log))
	r.Use(securityHeaders)
	if cfg.CORSOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{cfg.CORSOrigin},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))))
		}
		r.Use(limitConcurrency(max(cfg.MaxConcurrent, 1)))
		if cfg.RequestTimeout > 0 {
			r.Use(timeout(cfg.RequestTimeout))
		}

		r.Get("/health", h.HandleHealth)
		r.Get("/stats", h.HandleStats)

		r.Post("/route", h.HandleRoute)
		r.Post("/route/cycle", h.HandleCycle)
		r.Post("/route/places", h.HandlePlaceRoute)

		r.Route("/ways", func(r chi.Router) {
			r.Get("/", h.HandleListWays)
			r.Post("/", h.HandleAddWay)
			r.Delete("/", h.HandleClearWays)
			r.Post("/trim", h.HandleTrimWays)
			r.Get("/from", h.HandleWaysFrom)
			r.Get("/{id}", h.HandleGetWay)
			r.Delete("/{id}", h.HandleRemoveWay)
		})

		r.Route("/places", func(r chi.Router) {
			r.Get("/", h.HandleListPlaces)
			r.Post("/", h.HandleAddPlace)
			r.Get("/closest", h.HandleClosestPlaces)
			r.Get("/{id}", h.HandleGetPlace)
			r.Patch("/{id}", h.HandleUpdatePlace)
			r.Delete("/{id}", h.HandleRemovePlace)
		})

		r.Route("/areas", func(r chi.Router) {
			r.Get("/", h.HandleListAreas)
			r.Post("/", h.HandleAddArea)
			r.Post("/nest", h.HandleNestAreas)
			r.Get("/common", h.HandleCommonArea)
			r.Get("/{id}", h.HandleGetArea)
			r.Delete("/{id}", h.HandleRemoveArea)
			r.Get("/{id}/parent", h.HandleGetParent)
			r.Put("/{id}/parent", h.HandleSetParent)
			r.Get("/{id}/ancestors", h.HandleAncestors)
			r.Get("/{id}/descendants", h.HandleDescendants)
			r.Get("/{id}/children", h.HandleChildren)
		})

		r.Get("/export/{layer}", h.HandleExport)
	})

	return r
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, h *Handlers) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(cfg, h),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	log := zap.L()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
