// Package api exposes the reconciliation engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/store"
	"github.com/sells-group/recon-cli/internal/verify"
)

// Deps are the collaborators of the HTTP surface. Store and Pipeline are
// optional; the routes that need them answer 503 without them.
type Deps struct {
	Options  reconcile.Options
	Store    store.Store
	Pipeline *verify.Pipeline

	// Concurrency bounds the workers of one batch request.
	Concurrency int
}

// Server serves the HTTP API.
type Server struct {
	cfg     config.ServerConfig
	deps    Deps
	limiter *ipLimiter
	now     func() time.Time
}

// New creates a Server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		now:     time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.middleware)
		v1.Use(s.limitBody)

		v1.Post("/compare", s.handleCompare)
		v1.Post("/audit", s.handleAudit)
		v1.Post("/corrections", s.handleCorrections)
		v1.Post("/reconcile", s.handleReconcile)
		v1.Post("/reconcile/batch", s.handleReconcileBatch)
		v1.Post("/documents", s.handleDocument)
		v1.Get("/runs", s.handleListRuns)
		v1.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.limiter.janitor(janitorCtx, limiterIdle/2)

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api: listening", zap.Int("port", s.cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if eris.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "api: listen")
	case <-ctx.Done():
	}

	wait := time.Duration(s.cfg.ShutdownSecs) * time.Second
	if wait <= 0 {
		wait = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wait)
	defer cancel()

	zap.L().Info("api: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "api: shutdown")
	}
	return nil
}

func (s *Server) options() reconcile.Options {
	return s.deps.Options.At(s.now())
}
