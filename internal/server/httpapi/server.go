// Package httpapi exposes the linking handshake over HTTP using fiber.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/bloxpvp/robloxlink/internal/logging"
	"github.com/bloxpvp/robloxlink/internal/server/config"
	"github.com/bloxpvp/robloxlink/internal/server/link"
)

type HTTPServer struct {
	address string
	logger  logging.Logger
	link    *link.Service

	jwtSecret        []byte
	renewalThreshold time.Duration
}

func NewHTTPServer(l logging.Logger, ls *link.Service, cfg *config.Config) *HTTPServer {
	return &HTTPServer{
		address:          cfg.EndpointAddrHTTP,
		logger:           l.With("module", "http_server"),
		link:             ls,
		jwtSecret:        []byte(cfg.SecretKey),
		renewalThreshold: cfg.TokenRenewalThreshold,
	}
}

func (s *HTTPServer) newApp() *fiber.App {
	app := fiber.New()

	api := app.Group("/api/account")
	api.Post("/connect", s.connect)
	api.Post("/profile", s.profile)
	api.Get("/me", s.requireAuth, s.me)

	return app
}

func (s *HTTPServer) Run(ctx context.Context) error {

	app := s.newApp()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	return app.Listen(s.address, fiber.ListenConfig{DisableStartupMessage: true})
}
