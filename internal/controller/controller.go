// Package controller orchestrates scrape-then-sync passes, either once
// or on a fixed interval.
package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/clarastars/zyda-order-sync/internal/dispatch"
	"github.com/clarastars/zyda-order-sync/internal/models"
)

type Scraper interface {
	ScrapeOrders(ctx context.Context) ([]models.Order, error)
}

type Syncer interface {
	SyncAll(ctx context.Context, orders []models.Order) dispatch.Stats
}

type Config struct {
	// Interval is the target period between cycle starts in loop mode.
	Interval time.Duration
	// MinSleep floors the pause between cycles so a slow pass never
	// causes back-to-back runs.
	MinSleep time.Duration
	// Out receives the summary line of each pass. Defaults to stdout.
	Out io.Writer
}

type Controller struct {
	scraper  Scraper
	syncer   Syncer
	interval time.Duration
	minSleep time.Duration
	out      io.Writer
	logger   *slog.Logger
}

func New(scraper Scraper, syncer Syncer, cfg Config) *Controller {
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.MinSleep == 0 {
		cfg.MinSleep = 10 * time.Second
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Controller{
		scraper:  scraper,
		syncer:   syncer,
		interval: cfg.Interval,
		minSleep: cfg.MinSleep,
		out:      cfg.Out,
		logger:   slog.Default().With("component", "controller"),
	}
}

// RunOnce executes one scrape-then-sync pass. A failed pass is reported
// in the stats and the summary line, never as a process-terminating
// error.
func (c *Controller) RunOnce(ctx context.Context) dispatch.Stats {
	orders, err := c.scraper.ScrapeOrders(ctx)
	if err != nil {
		c.logger.Error("scrape pass failed", "error", err)
		stats := dispatch.Stats{Failed: 1}
		c.emitSummary(stats)
		return stats
	}

	if len(orders) == 0 {
		c.logger.Warn("no orders found in this pass")
		stats := dispatch.Stats{}
		c.emitSummary(stats)
		return stats
	}

	c.logger.Info("scraped orders", "count", len(orders))
	stats := c.syncer.SyncAll(ctx, orders)
	c.emitSummary(stats)
	return stats
}

// RunLoop repeats RunOnce until the context is cancelled. After each
// pass it sleeps the remainder of the interval, floored at MinSleep.
func (c *Controller) RunLoop(ctx context.Context) error {
	cycle := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cycle++
		start := time.Now()
		c.logger.Info("starting cycle", "cycle", cycle)

		stats := c.RunOnce(ctx)

		elapsed := time.Since(start)
		sleep := c.interval - elapsed
		if sleep < c.minSleep {
			sleep = c.minSleep
		}
		c.logger.Info("cycle completed",
			"cycle", cycle,
			"elapsed", elapsed.Round(time.Second),
			"sleep", sleep.Round(time.Second),
			"created", stats.Created,
			"updated", stats.Updated,
			"skipped", stats.Skipped,
			"failed", stats.Failed)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func (c *Controller) emitSummary(stats dispatch.Stats) {
	fmt.Fprintln(c.out, stats.Summary())
}
