// Command tasktided is the tasktide daemon. It keeps the local task state
// reconciled with the remote row store and serves it over a REST API with
// SSE change events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tasktide/tasktide/cache"
	"github.com/tasktide/tasktide/config"
	"github.com/tasktide/tasktide/identity"
	"github.com/tasktide/tasktide/internal/version"
	"github.com/tasktide/tasktide/localstore"
	"github.com/tasktide/tasktide/remote"
	"github.com/tasktide/tasktide/server"
	"github.com/tasktide/tasktide/syncstore"
)

var configPath = flag.String("config", "tasktide.yaml", "path to config file")

func main() {
	flag.Parse()

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// A missing config file runs on defaults; a broken one is fatal.
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = config.DefaultConfig()
	}
	if key := os.Getenv("TASKTIDE_API_KEY"); key != "" {
		cfg.Remote.APIKey = key
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting tasktided",
		"version", version.Version,
		"commit", version.Commit,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}
	local, err := localstore.Open(filepath.Join(cfg.DataDir, "tasktide.db"))
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer local.Close()

	ownerID, err := identity.EnsureOwner(local)
	if err != nil {
		log.Fatalf("Failed to establish owner identity: %v", err)
	}
	resolver := identity.NewResolver(local, logger)

	var rows remote.Store
	if cfg.Remote.BaseURL != "" {
		rows = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, logger)
	} else {
		// No remote configured: run fully local
		logger.Warn("no remote base URL configured; running standalone")
		rows = remote.NewInMemoryStore()
	}

	lists := cache.New[[]remote.Row](cfg.Cache.Capacity, cfg.Cache.TTL.Std())
	med := remote.NewMediator(rows, ownerID, lists, logger)

	store := syncstore.New(med, resolver, local, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := store.Load(ctx); err != nil {
		log.Fatalf("Failed to load store: %v", err)
	}

	if client, ok := rows.(*remote.Client); ok {
		monitor := remote.NewMonitor(client.Ping, cfg.Remote.PingInterval.Std(), func(online bool) {
			store.SetConnectivity(ctx, online)
		}, logger)
		go monitor.Run(ctx)
	} else {
		store.SetConnectivity(ctx, true)
	}

	srv := server.New(*cfg, store, version.Version, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("tasktided running on http://localhost%s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		fmt.Println("Shutting down...")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
