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

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/blockpress/internal/api"
	"github.com/starford/blockpress/internal/contentstore"
	"github.com/starford/blockpress/internal/index"
	"github.com/starford/blockpress/internal/logfields"
	"github.com/starford/blockpress/internal/mcpserver"
	"github.com/starford/blockpress/internal/metrics"
	"github.com/starford/blockpress/internal/publish"
	"github.com/starford/blockpress/internal/render"
	"github.com/starford/blockpress/internal/revalidate"
	"github.com/starford/blockpress/internal/sitemap"
	"github.com/starford/blockpress/internal/siteservice"
	"github.com/starford/blockpress/internal/sse"
	"github.com/starford/blockpress/internal/storage"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	reg    *prom.Registry
	rec    metrics.Recorder
	db     *index.DB
	svc    *siteservice.Service
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}

func setup(app *application) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root_page_id", cfg.Site.RootPageID),
		slog.String("content_source", cfg.Content.Source),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	client, err := newContentClient(cfg.Content)
	if err != nil {
		return nil, err
	}
	builder := sitemap.New(client, cfg.SitemapOptions(),
		sitemap.WithLogger(logger),
		sitemap.WithRecorder(rec))

	renderer := render.New()
	svcOpts := []siteservice.Option{siteservice.WithLogger(logger)}
	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		out, err := storage.NewFS(cfg.Output.Dir)
		if err != nil {
			return nil, fmt.Errorf("init output storage: %w", err)
		}
		pub, err := publish.New(out, renderer,
			publish.WithLogger(logger),
			publish.WithRecorder(rec))
		if err != nil {
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		svcOpts = append(svcOpts, siteservice.WithPublisher(pub))
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		rec:    rec,
		db:     db,
		svc:    siteservice.NewService(builder, db, renderer, svcOpts...),
	}, nil
}

func newContentClient(cfg ContentConfig) (contentstore.Client, error) {
	switch cfg.Source {
	case SourceHTTP:
		return contentstore.NewHTTPClient(cfg.APIURL,
			contentstore.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			contentstore.WithRetry(cfg.RetryAttempts, cfg.RetryDelay)), nil
	default:
		store, err := storage.NewFS(cfg.SnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("init snapshot storage: %w", err)
		}
		return contentstore.NewFSClient(store), nil
	}
}

// RunBuild crawls the site once, syncs the index and writes the static site.
func RunBuild(ctx context.Context, opts ...Option) error {
	rt, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Output.Dir == "" {
		rt.logger.Warn("output dir is empty, skipping publish")
	}
	res, err := rt.svc.Rebuild(ctx)
	if err != nil {
		return err
	}
	rt.logger.Info("Build finished",
		slog.Int("pages", res.Pages),
		slog.Int("duplicates", res.Duplicates),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
	return nil
}

// RunMCP serves the site over MCP on stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	rt, err := setup(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.svc.Rebuild(ctx); err != nil {
		rt.logger.Warn("initial rebuild failed", logfields.Error(err))
	}
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger, svc := rt.cfg, rt.logger, rt.svc

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	svc.OnRebuild(func(res siteservice.RebuildResult) {
		broker.PublishRebuilt(sse.Rebuilt{
			Pages:      res.Pages,
			Duplicates: res.Duplicates,
			Changed:    res.Index.Indexed + res.Index.Removed,
		})
	})

	// Run initial rebuild.
	if _, err := svc.Rebuild(ctx); err != nil {
		logger.Warn("initial rebuild failed", logfields.Error(err))
	}

	handler := api.NewServer(svc, api.ServerOptions{
		RevalidateCooldown: cfg.Revalidate.Cooldown,
		SSE:                broker,
		Metrics:            metrics.HTTPHandler(rt.reg),
		Recorder:           rt.rec,
	})

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: handler,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	rebuild := func(ctx context.Context) error {
		_, err := svc.Rebuild(ctx)
		return err
	}

	// Periodic revalidation.
	if cfg.Revalidate.Interval > 0 {
		sched, err := revalidate.NewScheduler(rebuild, logger)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		if _, err := sched.Schedule(gCtx, cfg.Revalidate.Interval); err != nil {
			return fmt.Errorf("schedule revalidation: %w", err)
		}
		sched.Start()
		g.Go(func() error {
			<-gCtx.Done()
			return sched.Stop()
		})
	}

	// Rebuild when local snapshots change.
	if cfg.Content.Source == SourceFS && cfg.Content.Watch {
		g.Go(func() error {
			err := contentstore.Watch(gCtx, cfg.Content.SnapshotDir, logger, func(paths []string) {
				logger.Info("snapshots changed", logfields.Count(len(paths)))
				if err := rebuild(gCtx); err != nil {
					logger.Error("rebuild after change failed", logfields.Error(err))
				}
			})
			if err != nil {
				logger.Error("watcher failed", logfields.Error(err))
			}
			return nil
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
			logger.Error("HTTP server shutdown error", logfields.Error(err))
		}
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", logfields.Error(err))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
