package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Start blocks serving requests until the listener fails or Shutdown is
// called. HTTPS is used when both certificate files are configured.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	addr := net.JoinHostPort(s.config.Host, s.config.Port)

	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.applyTimeouts(s.echo.TLSServer)
		s.logger.WithFields(logrus.Fields{"addr": addr}).Info("Starting HTTPS server")
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}

	s.applyTimeouts(s.echo.Server)
	s.logger.WithFields(logrus.Fields{
		"addr":       addr,
		"static_dir": s.config.StaticDir,
	}).Info("Starting HTTP server")
	return s.echo.Start(addr)
}

// applyTimeouts configures the server echo manages itself. Serving a locally
// built http.Server would leave echo.Shutdown with nothing to stop.
func (s *Server) applyTimeouts(server *http.Server) {
	server.ReadTimeout = s.config.ReadTimeout
	server.WriteTimeout = s.config.WriteTimeout
	server.IdleTimeout = s.config.IdleTimeout
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
