package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/runterritory/server/internal/cache"
	"github.com/runterritory/server/internal/config"
	"github.com/runterritory/server/internal/lib/geo"
	"github.com/runterritory/server/internal/lib/territory"
	"github.com/runterritory/server/internal/lib/verification"
)

// Dependencies are the collaborators the HTTP handlers call into
type Dependencies struct {
	GeoUtils     geo.GeoUtils
	Verifier     verification.Verifier
	Detector     territory.Detector
	Store        *cache.Cache
	Runs         *cache.RunRepository
	Metrics      *Collector
	TerritoryTTL time.Duration
	Logger       *zap.Logger

	MaxBodyBytes      int64
	MaxResamplePoints int
}

// Server serves the geo engine over HTTP
type Server struct {
	srv             *http.Server
	logger          *zap.SugaredLogger
	shutdownTimeout time.Duration
}

// New creates a server listening on cfg.Address
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           NewRouter(deps),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger:          deps.Logger.Sugar().Named("api"),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// NewRouter builds the chi router with middleware and every route mounted.
// Zero limits fall back to the configured defaults.
func NewRouter(deps Dependencies) http.Handler {
	defaults := config.DefaultConfig()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.GeoUtils == nil {
		deps.GeoUtils = geo.NewGeoUtils()
	}
	if deps.TerritoryTTL <= 0 {
		deps.TerritoryTTL = 24 * time.Hour
	}
	if deps.Runs == nil {
		deps.Runs = cache.NewRunRepository(cache.NewCache(deps.Logger), 24*time.Hour)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if deps.MaxResamplePoints <= 0 {
		deps.MaxResamplePoints = defaults.Server.MaxResamplePoints
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(deps.Logger.Sugar().Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(limitBody(deps.MaxBodyBytes))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	addRoutes(r, deps)
	return r
}

// Run listens and serves until Shutdown is called
func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	s.logger.Infow("HTTP server listening", "address", ln.Addr().String())
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server within the configured timeout
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *zap.SugaredLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Infow("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
