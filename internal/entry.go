// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/arbor/internal/api"
	"github.com/starford/arbor/internal/articleservice"
	"github.com/starford/arbor/internal/markdown"
	"github.com/starford/arbor/internal/metrics"
	"github.com/starford/arbor/internal/seed"
	"github.com/starford/arbor/internal/sse"
	"github.com/starford/arbor/internal/storage"
	"github.com/starford/arbor/internal/store"
	"github.com/starford/arbor/internal/vault"
	"github.com/starford/arbor/internal/web"
)

const (
	treeEventThrottle = 2 * time.Second
	poolStatsInterval = 15 * time.Second
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// openService opens the article store and builds the service on top of it.
// The caller closes the returned DB.
func (a *application) openService(ctx context.Context, svcOpts ...articleservice.Option) (*store.DB, *articleservice.Service, error) {
	cfg := a.config
	renderer, err := markdown.New(cfg.Markdown.Engine)
	if err != nil {
		return nil, nil, fmt.Errorf("init markdown: %w", err)
	}
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return db, articleservice.New(db, renderer, svcOpts...), nil
}

// openVault returns nil when no vault path is configured.
func openVault(path string, svc *articleservice.Service, logger *slog.Logger) (*vault.Vault, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	files, err := storage.NewFS(path)
	if err != nil {
		return nil, fmt.Errorf("init vault storage: %w", err)
	}
	return vault.New(svc, files, logger), nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.Warn("readiness check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// newRouter assembles the HTTP surface: health, metrics, JSON API and UI.
func newRouter(cfg *Config, svc *articleservice.Service, broker http.Handler) (chi.Router, error) {
	ui, err := web.New(svc)
	if err != nil {
		return nil, fmt.Errorf("init web ui: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health check and metrics endpoints (unauthenticated).
	r.Get("/health/live", healthHandler(nil))
	r.Get("/health/ready", healthHandler(svc.Ping))
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	r.Mount("/", ui.Routes())
	return r, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("markdown_engine", cfg.Markdown.Engine),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker doubles as the service's change notifier.
	broker := sse.NewBroker(treeEventThrottle)
	defer broker.Close()

	db, svc, err := app.openService(ctx, articleservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer db.Close()

	pool := metrics.NewPoolStatsCollector(db)
	pool.Start(poolStatsInterval)
	defer pool.Stop()

	if cfg.Seed.OnStart {
		n, err := seed.Run(ctx, svc, logger)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("Seeded sample articles", slog.Int("created", n))
	}

	v, err := openVault(cfg.Vault.Path, svc, logger)
	if err != nil {
		return err
	}
	if v != nil {
		if _, err := v.Import(ctx); err != nil {
			logger.Warn("initial vault import failed", slog.String("error", err.Error()))
		}
	}

	router, err := newRouter(cfg, svc, broker)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.App.HTTP.Address(),
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	if v != nil && cfg.Vault.Watch {
		g.Go(func() error {
			return v.Watch(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stops the vault watcher.
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
