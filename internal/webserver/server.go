package webserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"site2apk/internal/config"
	"site2apk/internal/convert"
	"site2apk/internal/i18n"
	"site2apk/internal/notify"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = time.Minute
)

// Server serves the conversion form and runs browser-initiated attempts.
type Server struct {
	cfg      config.Config
	resolver convert.Resolver
	builder  convert.Builder
	// notifier receives every toast in addition to the attempt's own recorder.
	notifier notify.Sink
	attempts *registry
	baseCtx  context.Context
}

// NewServer wires a Server. notifier may be nil.
func NewServer(cfg config.Config, resolver convert.Resolver, builder convert.Builder, notifier notify.Sink) *Server {
	return &Server{
		cfg:      cfg,
		resolver: resolver,
		builder:  builder,
		notifier: notifier,
		attempts: newRegistry(),
		baseCtx:  context.Background(),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.HealthHandler)
	r.Get("/favicon.ico", FaviconHandler("www/favicon.png"))

	r.Group(func(r chi.Router) {
		r.Use(CompressionMiddleware)

		r.Get("/", s.HomeHandler)
		r.Handle("/www/*", http.StripPrefix("/www/", StaticFileServer()))

		r.Route("/api", func(r chi.Router) {
			r.Post("/validate/archive", s.ValidateArchiveHandler)
			r.Post("/validate/icon", s.ValidateIconHandler)
			r.Post("/convert", s.ConvertHandler)
			r.Get("/attempts/{id}", s.StatusHandler)
		})
	})

	// Packages are already compressed.
	r.Get("/api/attempts/{id}/download", s.DownloadHandler)

	return r
}

// ListenAndServe serves until ctx ends, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := i18n.LoadTranslations(); err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	s.baseCtx = ctx

	go s.attempts.sweep(ctx, sweepInterval)

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("Server started", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server startup error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
