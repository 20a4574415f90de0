package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasksphere/internal/codec"
	"tasksphere/internal/config"
	"tasksphere/internal/directory"
	"tasksphere/internal/keylock"
	"tasksphere/internal/realtime"
	"tasksphere/internal/repository"
	"tasksphere/internal/resolver"
	"tasksphere/internal/server"
	"tasksphere/internal/storage"
	"tasksphere/internal/storage/memory"
	"tasksphere/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	logger.Info("TaskSphere API", slog.String("storage", cfg.Storage.Driver), slog.String("config", cfg.File))

	backend, closeBackend, err := openBackend(cfg.Storage, logger)
	if err != nil {
		logger.Error("unable to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeBackend()

	scope, _ := resolver.ParseScope(cfg.API.TaskScope)
	c := codec.New(backend, logger)
	locks := keylock.New()
	store := repository.New(c, nil, locks, logger, repository.Options{
		Latency:       cfg.API.Latency.Std(),
		LogoutLatency: cfg.API.LogoutLatency.Std(),
		TaskScope:     scope,
	})
	if cfg.API.Seed {
		store.Initialize()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	srv := server.New(server.Deps{
		Store:     store,
		Codec:     c,
		Locks:     locks,
		Directory: directory.New(cfg.Directory.URL, cfg.Directory.Timeout.Std(), cfg.Directory.CacheTTL.Std(), logger),
		Hub:       hub,
	}, logger, server.Options{
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Admin:          cfg.Server.Admin,
	})
	if cfg.Server.Admin {
		logger.Warn("admin routes enabled", slog.String("prefix", "/api/admin"))
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// openBackend returns the configured key-value backend and its close function.
func openBackend(cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(cfg.QuotaBytes), func() {}, nil
	default:
		store, err := sqlite.Open(cfg.Path, logger, cfg.QuotaBytes)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close database", slog.String("error", err.Error()))
			}
		}, nil
	}
}
