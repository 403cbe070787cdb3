// Package server initializes and runs the linking service: it wires the
// configuration, storage backends, the Roblox API client and the HTTP
// server, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/bloxpvp/robloxlink/internal/logging"
	"github.com/bloxpvp/robloxlink/internal/server/challenge"
	"github.com/bloxpvp/robloxlink/internal/server/config"
	"github.com/bloxpvp/robloxlink/internal/server/httpapi"
	"github.com/bloxpvp/robloxlink/internal/server/link"
	"github.com/bloxpvp/robloxlink/internal/server/roblox"
	"github.com/bloxpvp/robloxlink/internal/server/shared/db"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	linkService *link.Service
	httpServer  *httpapi.HTTPServer
	registry    challenge.Registry
}

// newRegistry picks the challenge registry backend: Redis when an address
// is configured, the in-process map otherwise.
func newRegistry(cfg *config.Config) challenge.Registry {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return challenge.NewRedisRegistry(client, cfg.ChallengeTTL)
	}
	return challenge.NewMemoryRegistry(cfg.ChallengeTTL)
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	registry := newRegistry(cfg)
	client := roblox.NewClient(cfg.RobloxUsersEndpoint, cfg.RobloxThumbnailsEndpoint)

	ls := link.NewService(rm.Accounts(), registry, client, challenge.NewGenerator(), logger, cfg)
	hs := httpapi.NewHTTPServer(logger, ls, cfg)

	return &App{
		config:      cfg,
		logger:      logger,
		linkService: ls,
		httpServer:  hs,
		registry:    registry,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if mr, ok := app.registry.(*challenge.MemoryRegistry); ok {
		mr.Close()
	}
}
