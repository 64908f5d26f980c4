// Package server exposes the document store over HTTP: collection CRUD
// with query directives under /data, sessions under /users, service
// utilities under /util and /admin.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"docbay/internal/constants"
	"docbay/internal/logger"
)

// Server wraps the HTTP server with graceful shutdown
type Server struct {
	httpServer *http.Server
	app        *App
	logger     *logger.Logger
}

// NewServer creates a new HTTP server
func NewServer(app *App, addr string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		app:    app,
		logger: app.Logger,
	}

	// Register routes
	s.registerRoutes(mux)

	// Build middleware chain: RequestID → RequestLog → CORS → Authenticate → Throttle → handler
	handler := Chain(mux, RequestID, s.RequestLog, CORS, s.Authenticate, s.Throttle)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		IdleTimeout: constants.HTTPIdleTimeout,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Collection routes
	mux.HandleFunc("/data", s.handleCollections)
	mux.HandleFunc("/data/", s.handleDataRoutes)

	// Session routes
	mux.HandleFunc("/users/register", s.handleRegister)
	mux.HandleFunc("/users/login", s.handleLogin)
	mux.HandleFunc("/users/logout", s.handleLogout)
	mux.HandleFunc("/users/me", s.handleMe)

	// Utility routes
	mux.HandleFunc("/util", s.handleUtilFlags)
	mux.HandleFunc("/util/throttle", s.handleThrottleStatus)

	// Audit log routes
	mux.HandleFunc("/admin/audit", s.handleAuditQuery)

	mux.HandleFunc("/", s.handleRoot)
}

// Start runs the server and blocks until shutdown signal
func (s *Server) Start() error {
	// Channel for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, shutdownSignals...)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errChan:
		return err
	case sig := <-stop:
		s.logger.Info("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.ShutdownTimeoutSecs)*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Shutdown error: %v", err)
	}

	if s.app.AuditLogger != nil {
		s.app.AuditLogger.Close()
	}

	s.logger.Info("Server stopped")
	return nil
}

// Handler returns the HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleRoot answers the bare root with service identity; anything else
// under it is unknown.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Service not found", constants.ErrCodeInvalidRequest)
		return
	}
	WriteSuccess(w, map[string]any{
		"name":        constants.AppDisplayName,
		"collections": s.app.Public.Collections(),
	})
}
