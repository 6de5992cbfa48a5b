package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Server owns the HTTP listener of the dashboard.
type Server struct {
	httpServer *http.Server
}

const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	// exports stream whole backend files; websockets set their own deadlines
	writeTimeout = 2 * time.Minute
	idleTimeout  = 60 * time.Second
)

// New prepares a server for port ("8090" or ":8090") serving handler.
func New(port string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              normalizeAddr(port),
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}}
}

// normalizeAddr accepts "8090" or ":8090"; empty means ":8090".
func normalizeAddr(port string) string {
	if port == "" {
		return ":8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Addr is the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Run blocks serving requests. A graceful Shutdown makes it return nil.
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
