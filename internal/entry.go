// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/contentservice"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/transfer"
)

// App holds the components shared by every command.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Store    *store.Store
	Broker   *sse.Broker
	Service  *contentservice.Service
	Transfer *transfer.Transfer

	version string
}

// NewLogger builds the structured logger described by cfg.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Open builds the application components from the given options. The
// caller must Close the returned App.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("transfer_dir", cfg.Transfer.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := store.Open(ctx, cfg.Storage.Options(logger))
	if err != nil {
		return nil, err
	}

	fs, err := storage.NewFS(cfg.Transfer.Dir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init transfer dir: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	svc := contentservice.New(st,
		contentservice.WithNotifier(broker),
		contentservice.WithLogger(logger),
		contentservice.WithDefaultLimit(cfg.Search.Limit),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Broker:   broker,
		Service:  svc,
		Transfer: transfer.New(fs, svc, logger),
		version:  app.version,
	}, nil
}

// Close stops the broker and closes the store.
func (a *App) Close() error {
	a.Broker.Close()
	return a.Store.Close()
}

// Run starts the HTTP server, and the transfer watcher when enabled,
// until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	logger := app.Logger

	sseHandler := http.Handler(app.Broker)
	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           api.NewServerHandler(app.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Transfer.Watch {
		g.Go(func() error {
			return app.Transfer.Watch(gCtx, cfg.Transfer.Pattern)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open SSE streams only end when the broker closes.
		app.Broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs must not go to
// stdout, so callers pass WithLogOutput.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger.Info("MCP server starting", slog.String("transport", "stdio"))
	return mcpserver.New(app.Service, app.version).ServeStdio()
}
