// Package web is the thin HTTP shell around the core: a health
// endpoint behind an optional bearer-token filter. The JSON-RPC body
// of the HTTP transport is a separate concern and not part of this
// package.
package web

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toolbridge/toolbridge/internal/config"
)

// Server holds the HTTP shell and its dependencies.
type Server struct {
	cfg           *config.Config
	mux           *http.ServeMux
	healthHandler *HealthHandler
}

// NewServer creates the HTTP shell.
func NewServer(cfg *config.Config, info HealthInfo) *Server {
	s := &Server{
		cfg:           cfg,
		mux:           http.NewServeMux(),
		healthHandler: NewHealthHandler(info),
	}
	s.mux.Handle("/healthz", s.withAuth(s.healthHandler))
	return s
}

// withAuth enforces the bearer token when MCP_REQUIRE_AUTH is set.
// Without a configured token, auth-required mode rejects everything —
// a misconfiguration that should be loud, not silently open.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.MCPRequireAuth {
			expected := "Bearer " + s.cfg.MCPAuthToken
			if s.cfg.MCPAuthToken == "" || r.Header.Get("Authorization") != expected {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Start listens on MCP_HOST:MCP_PORT with graceful shutdown on
// SIGINT/SIGTERM.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("[Web] Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Web] Graceful shutdown error: %v", err)
		}
	}()

	log.Printf("[Web] Health endpoint at http://%s/healthz", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
