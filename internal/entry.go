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

	"github.com/fenwick/draftpilot/internal/api"
	"github.com/fenwick/draftpilot/internal/assistant"
	"github.com/fenwick/draftpilot/internal/bus"
	"github.com/fenwick/draftpilot/internal/draft"
	"github.com/fenwick/draftpilot/internal/draftfile"
	"github.com/fenwick/draftpilot/internal/genclient"
	"github.com/fenwick/draftpilot/internal/history"
	"github.com/fenwick/draftpilot/internal/reveal"
)

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("draft_file", cfg.Draft.File),
		slog.String("store_path", cfg.Store.Path),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, sess, b, file, gen, err := buildCore(app, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer b.Close()
	defer sess.Close()

	// Build API service and router.
	svc := api.NewService(sess, store, gen, b)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, b)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the draft file for external edits and feed them into the session.
	g.Go(func() error {
		err := file.Watch(gCtx, logger, func(content string) {
			b.Publish(bus.DraftUpdate, content)
		})
		if err != nil {
			logger.Warn("draft file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Persist committed document changes back to disk.
	g.Go(func() error {
		sub := b.Subscribe(bus.DraftUpdated)
		defer b.Unsubscribe(sub)
		for {
			select {
			case <-gCtx.Done():
				return nil
			case ev, ok := <-sub.C:
				if !ok {
					return nil
				}
				p, ok := ev.Payload.(draft.DocumentPayload)
				if !ok {
					continue
				}
				if err := file.Save(p.Document); err != nil {
					logger.Warn("save draft failed", slog.String("error", err.Error()))
				}
			}
		}
	})

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the assistant tool server on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	// Stdout carries the protocol stream, logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, sess, b, file, gen, err := buildCore(app, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer b.Close()
	defer sess.Close()

	// Persist committed changes so the draft survives across sessions.
	saveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		sub := b.Subscribe(bus.DraftUpdated)
		defer b.Unsubscribe(sub)
		for {
			select {
			case <-saveCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if p, ok := ev.Payload.(draft.DocumentPayload); ok {
					if err := file.Save(p.Document); err != nil {
						logger.Warn("save draft failed", slog.String("error", err.Error()))
					}
				}
			}
		}
	}()

	srv := assistant.New(b, sess, store, gen)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildCore wires the store, bus, persisted draft, session, and generation
// backend shared by the HTTP and MCP entry points.
func buildCore(app *application, logger *slog.Logger) (history.Store, *draft.Session, *bus.Bus, *draftfile.File, genclient.Client, error) {
	cfg := app.config

	store, err := history.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("open history store: %w", err)
	}

	file, err := draftfile.New(cfg.Draft.File)
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("init draft file: %w", err)
	}

	b := bus.New()
	sess := draft.NewSession(b, file.Load(), reveal.DefaultInterval)

	gen := app.gen
	if gen == nil {
		gen, err = newGenerator(cfg, logger)
		if err != nil {
			sess.Close()
			b.Close()
			store.Close()
			return nil, nil, nil, nil, nil, err
		}
	}

	return store, sess, b, file, gen, nil
}

func newGenerator(cfg *Config, logger *slog.Logger) (genclient.Client, error) {
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		return genclient.NewOpenAI(genclient.Settings{
			Model:   cfg.LLM.Model,
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
		})
	default:
		logger.Info("Using mock generation backend")
		return genclient.Mock{}, nil
	}
}
