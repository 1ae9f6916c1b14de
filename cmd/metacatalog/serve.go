package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metacatalog/internal/auth"
	"metacatalog/internal/handler"
	"metacatalog/internal/hub"
	"metacatalog/internal/loader"
	"metacatalog/internal/metrics"
	"metacatalog/internal/watcher"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr     string
		seedPath string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog API server",
		Long: `Serve the REST API under /api/v1, the live change event stream at
/api/v1/events/stream and Prometheus metrics at /metrics.

When a seed file is configured it is loaded before the server starts and,
with --watch, reloaded whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if seedPath != "" {
				a.cfg.Seed.Path = seedPath
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Seed.Watch = watch
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "Seed file loaded on start (overrides seed.path)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the seed file when it changes")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	logger := a.logger
	logger.Info("starting metacatalog", zap.String("version", version))
	logger.Debug("configuration", zap.String("summary", cfg.Summary()))

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	catalog, closeFn, err := a.openCatalog(collector)
	if err != nil {
		return err
	}
	defer closeFn()

	sseHub := hub.New(logger, cfg.Events.Buffer)
	catalog.EventBus().Subscribe(sseHub.Events())
	go sseHub.Run(ctx)

	if cfg.Seed.Path != "" {
		seeds := loader.New(catalog, logger)
		if _, err := seeds.LoadFile(ctx, cfg.Seed.Path); err != nil {
			return err
		}
		if cfg.Seed.Watch {
			w := watcher.New(func(ctx context.Context, path string) error {
				_, err := seeds.LoadFile(ctx, path)
				return err
			}, logger, cfg.Seed.Path)
			go func() {
				if err := w.Watch(ctx); err != nil {
					logger.Error("seed watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	h := handler.New(catalog, sseHub, collector, logger, handler.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Auth: auth.Options{
			Enabled:          cfg.Auth.Enabled,
			PrincipalHeader:  cfg.Auth.PrincipalHeader,
			DefaultPrincipal: cfg.Auth.DefaultPrincipal,
		},
		IsAdmin:  cfg.IsAdmin,
		TokenTTL: cfg.Auth.TokenTTL.Duration(),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	timeout := cfg.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
