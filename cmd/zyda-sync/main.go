package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/clarastars/zyda-order-sync/internal/browser"
	"github.com/clarastars/zyda-order-sync/internal/config"
	"github.com/clarastars/zyda-order-sync/internal/controller"
	"github.com/clarastars/zyda-order-sync/internal/database"
	"github.com/clarastars/zyda-order-sync/internal/dispatch"
	"github.com/clarastars/zyda-order-sync/internal/events"
	"github.com/clarastars/zyda-order-sync/internal/ledger"
	"github.com/clarastars/zyda-order-sync/internal/scraper"
)

func main() {
	var (
		loop     = flag.Bool("loop", false, "Run continuously instead of a single pass")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	phoneLedger := ledger.Load(cfg.Ledger.Path)
	defer phoneLedger.Flush()

	// Optional result hooks
	var hooks []dispatch.ResultHook

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		syncLog := database.NewSyncLog(db)
		if err := syncLog.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare sync log schema", "error", err)
			os.Exit(1)
		}
		hooks = append(hooks, syncLog)
		logger.Info("sync log enabled", "database", cfg.Database.DBName)
	}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		hooks = append(hooks, events.NewPublisher(redisClient, cfg.Redis.Stream))
		logger.Info("event publishing enabled", "stream", cfg.Redis.Stream)
	}

	// Browser setup
	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = *headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	browserOpts.AcceptLanguage = cfg.Browser.AcceptLanguage
	browserOpts.TimezoneID = cfg.Browser.TimezoneID
	browserOpts.Locale = cfg.Browser.Locale

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to create browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	dashboard := scraper.NewDashboardScraper(b, cfg.Dashboard)
	dispatcher := dispatch.New(cfg.Sync.Endpoint, cfg.Sync.Timeout, phoneLedger, hooks...)
	ctrl := controller.New(dashboard, dispatcher, controller.Config{
		Interval: cfg.Loop.Interval,
		MinSleep: cfg.Loop.MinSleep,
	})

	if *loop {
		logger.Info("starting sync loop", "interval", cfg.Loop.Interval)
		if err := ctrl.RunLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sync loop failed", "error", err)
			os.Exit(1)
		}
		logger.Info("sync loop stopped")
		return
	}

	stats := ctrl.RunOnce(ctx)
	logger.Info("pass completed",
		"total", stats.Total,
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
