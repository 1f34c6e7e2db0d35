// Package web is the thin HTTP surface the browser UI talks to. It owns
// session state (one record per open case) and delegates everything else
// to the pipeline, the composer and the store.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studiolegale/fascicolo/internal/extract"
	"github.com/studiolegale/fascicolo/internal/pipeline"
	"github.com/studiolegale/fascicolo/internal/repository"
)

// NewServer wires the HTTP routes.
func NewServer(store *repository.Store, orch *pipeline.Orchestrator, extractor *extract.Extractor, addr string, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		store:     store,
		orch:      orch,
		extractor: extractor,
		logger:    logger,
		sessions:  map[string]*pipeline.Session{},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /cases", h.HandleListCases)
	mux.HandleFunc("POST /cases", h.HandleCreateCase)
	mux.HandleFunc("PATCH /cases/{id}", h.HandleUpdateCase)
	mux.HandleFunc("DELETE /cases/{id}", h.HandleDeleteCase)
	mux.HandleFunc("POST /cases/{id}/close", h.HandleCloseCase)
	mux.HandleFunc("POST /cases/{id}/uploads", h.HandleUploads)
	mux.HandleFunc("POST /cases/{id}/chat", h.HandleChat)
	mux.HandleFunc("GET /cases/{id}/quote", h.HandleQuote)
	mux.HandleFunc("POST /cases/{id}/generate", h.HandleGenerate)
	mux.HandleFunc("GET /cases/{id}/export", h.HandleExport)
	mux.HandleFunc("GET /cases/{id}/snapshots/{index}/preview", h.HandlePreview)

	return &http.Server{
		Addr:    addr,
		Handler: securityHeaders(mux),
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on
// SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("web.listening", "addr", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("web.shutdown", "signal", fmt.Sprintf("%v", sig))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
