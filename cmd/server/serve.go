package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lionrepo/internal/config"
	"lionrepo/internal/handler"
	"lionrepo/internal/hub"
	"lionrepo/internal/loader"
	"lionrepo/internal/repository"
	"lionrepo/internal/service"
	"lionrepo/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the repository HTTP server",
		Long: `Run the repository HTTP server.

Repositories listed in the config file are created at startup and filled
from their seed files. Seeds marked watch are reloaded when they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// newService creates the repository server. Every repository gets its own
// id generator of the configured strategy.
func newService(cfg *config.Config, bus *service.EventBus, logger *slog.Logger) (*service.Server, error) {
	if _, err := cfg.NewIDGenerator(); err != nil {
		return nil, err
	}
	return service.NewServer(
		service.WithLogger(logger),
		service.WithEventBus(bus),
		service.WithFactory(service.MemoryFactory(func() repository.IDGenerator {
			ids, _ := cfg.NewIDGenerator()
			return ids
		})),
	), nil
}

// bootstrap creates the configured repositories and loads their seeds. It
// returns the repositories to reload per watched seed path.
func (a *app) bootstrap(ctx context.Context, svc *service.Server, ld *loader.Loader) (map[string][]string, error) {
	watched := make(map[string][]string)
	for _, repo := range a.cfg.Repositories {
		if err := svc.CreateRepository(ctx, repo.Configuration()); err != nil {
			return nil, err
		}
		if repo.Seed == "" {
			continue
		}
		if _, err := ld.Load(ctx, repo.Name, repo.Seed); err != nil {
			return nil, err
		}
		if repo.Watch {
			path, err := filepath.Abs(repo.Seed)
			if err != nil {
				return nil, err
			}
			watched[path] = append(watched[path], repo.Name)
		}
	}
	return watched, nil
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	bus := service.NewEventBus()
	svc, err := newService(a.cfg, bus, logger)
	if err != nil {
		return err
	}
	ld := loader.New(svc, nil, logger)

	watched, err := a.bootstrap(ctx, svc, ld)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	events := hub.New(logger)
	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler.NewRouter(handler.New(svc, nil, logger), events),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return events.Run(ctx) })
	g.Go(func() error { return events.Forward(ctx, bus) })

	if len(watched) > 0 {
		paths := make([]string, 0, len(watched))
		for path := range watched {
			paths = append(paths, path)
		}
		g.Go(func() error {
			return watcher.WatchMultiple(ctx, paths, watcher.DefaultDebounce, logger, func(path string) {
				for _, name := range watched[path] {
					if _, err := ld.Load(ctx, name, path); err != nil {
						logger.Error("seed reload failed", "repository", name, "path", path, "error", err)
					}
				}
			})
		})
	}

	g.Go(func() error {
		logger.Info("server listening", "addr", server.Addr, "repositories", len(a.cfg.Repositories))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
