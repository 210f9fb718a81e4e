package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/marcus-crane/mediaspyy/changes"
	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/db"
	"github.com/marcus-crane/mediaspyy/events"
	"github.com/marcus-crane/mediaspyy/migrations"
	"github.com/marcus-crane/mediaspyy/notify"
	"github.com/marcus-crane/mediaspyy/routes"
	"github.com/marcus-crane/mediaspyy/storage"
	"github.com/marcus-crane/mediaspyy/twitch"
)

const servedMediaKey = "server:media"

func main() {
	os.Exit(run())
}

// run returns the exit code so that deferred cleanup happens before exiting
func run() int {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Println(err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	kv, internal, closeStore, err := openStorage(cfg)
	if err != nil {
		slog.Error("Failed to open storage", slog.String("error", err.Error()))
		return 1
	}
	defer closeStore()

	settings := config.NewKVSettings(kv)

	checker := twitch.NewClient(settings, kv)
	if cfg.Pushover.Token != "" && cfg.Pushover.Recipient != "" {
		checker.Notifier = notify.NewPushover(cfg.Pushover.Token, cfg.Pushover.Recipient)
	}

	chain := &storage.Active{
		Settings: settings,
		Checker:  checker,
		Delegate: &storage.Selector{
			Settings: settings,
			Internal: internal,
			External: storage.NewRemote(settings),
		},
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	broadcaster := events.New()

	handler := changes.NewHandler(chain, settings, changes.NewMetrics(reg))
	handler.Events = broadcaster

	opts := routes.Options{
		Changes:        handler,
		Settings:       settings,
		Events:         broadcaster,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		AllowedOrigins: cfg.Origins(),
	}
	if cfg.MediaServerEnabled() {
		opts.MediaServer = &routes.MediaServer{
			Store:    &storage.Local{Store: kv, Key: servedMediaKey, Capacity: cfg.MediaServer.Capacity},
			User:     cfg.MediaServer.User,
			Password: cfg.MediaServer.Password,
		}
		slog.Info("Serving media API", slog.Int("capacity", cfg.MediaServer.Capacity))
	}

	jobScheduler, err := SetupInBackground(cfg, settings, checker, broadcaster)
	if err != nil {
		slog.Error("Failed to set up background jobs", slog.String("error", err.Error()))
		return 1
	}
	jobScheduler.Start()

	// No write timeout as /events holds connections open
	srv := &http.Server{
		Addr:        cfg.Spyy.Addr,
		Handler:     routes.New(opts),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("MediaSpyy is running", slog.String("addr", cfg.Spyy.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Gracefully shutting down...")
		if err := jobScheduler.Shutdown(); err != nil {
			slog.Warn("Failed to stop background jobs", slog.String("error", err.Error()))
		}
		// SSE clients never finish on their own, so close streams before waiting on requests
		broadcaster.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	code := 0
	if err := g.Wait(); err != nil {
		slog.Error("Server stopped unexpectedly", slog.String("error", err.Error()))
		code = 1
	}
	slog.Info("MediaSpyy has shut down")
	return code
}

// openStorage returns the key-value store backing settings and tokens along
// with the internal history backend that matches the configured mode
func openStorage(cfg config.Config) (db.Store, storage.Store, func(), error) {
	if cfg.Spyy.StorageMode == config.StorageModeMemory {
		slog.Info("Using in-memory storage, nothing will survive a restart")
		return db.NewMemoryStore(), storage.NewMemory(), func() {}, nil
	}

	store, err := db.NewSqliteStore(cfg.Spyy.DbPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.ApplyMigrations(migrations.GetMigrations(), migrations.Dir); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close database", slog.String("error", err.Error()))
		}
	}
	internal := &storage.Local{Store: store, Key: storage.DefaultKey, Capacity: cfg.Spyy.HistoryCapacity}
	return store, internal, closeStore, nil
}
