package controller

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clarastars/zyda-order-sync/internal/dispatch"
	"github.com/clarastars/zyda-order-sync/internal/models"
)

type fakeScraper struct {
	orders []models.Order
	err    error
	calls  int
}

func (f *fakeScraper) ScrapeOrders(ctx context.Context) ([]models.Order, error) {
	f.calls++
	return f.orders, f.err
}

type fakeSyncer struct {
	stats dispatch.Stats
	got   []models.Order
}

func (f *fakeSyncer) SyncAll(ctx context.Context, orders []models.Order) dispatch.Stats {
	f.got = orders
	f.stats.Total = len(orders)
	return f.stats
}

func TestRunOnce(t *testing.T) {
	orders := []models.Order{
		{Phone: "0501234567", OrderKey: "#AAAA-0001"},
		{Phone: "0501234567", OrderKey: "#AAAA-0002"},
	}

	var out bytes.Buffer
	scraper := &fakeScraper{orders: orders}
	syncer := &fakeSyncer{stats: dispatch.Stats{Created: 1, Skipped: 1}}
	c := New(scraper, syncer, Config{Out: &out})

	stats := c.RunOnce(context.Background())

	assert.Equal(t, dispatch.Stats{Total: 2, Created: 1, Skipped: 1}, stats)
	assert.Len(t, syncer.got, 2)
	assert.Equal(t, "SUMMARY created=1 updated=0 skipped=1 failed=0\n", out.String())
}

func TestRunOnceScrapeFailure(t *testing.T) {
	var out bytes.Buffer
	scraper := &fakeScraper{err: errors.New("login never succeeded")}
	c := New(scraper, &fakeSyncer{}, Config{Out: &out})

	stats := c.RunOnce(context.Background())

	assert.Equal(t, dispatch.Stats{Failed: 1}, stats)
	assert.Equal(t, "SUMMARY created=0 updated=0 skipped=0 failed=1\n", out.String())
}

func TestRunOnceNoOrders(t *testing.T) {
	var out bytes.Buffer
	syncer := &fakeSyncer{}
	c := New(&fakeScraper{}, syncer, Config{Out: &out})

	stats := c.RunOnce(context.Background())

	assert.Equal(t, dispatch.Stats{}, stats)
	assert.Nil(t, syncer.got, "syncer must not run for an empty pass")
	assert.Equal(t, "SUMMARY created=0 updated=0 skipped=0 failed=0\n", out.String())
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	scraper := &fakeScraper{}
	c := New(scraper, &fakeSyncer{}, Config{
		Interval: 10 * time.Millisecond,
		MinSleep: time.Millisecond,
		Out:      &out,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.RunLoop(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, scraper.calls, 2, "loop should keep cycling until cancelled")
}

func TestRunLoopSurvivesFailingPasses(t *testing.T) {
	var out bytes.Buffer
	scraper := &fakeScraper{err: errors.New("order list never appeared")}
	c := New(scraper, &fakeSyncer{}, Config{
		Interval: time.Millisecond,
		MinSleep: time.Millisecond,
		Out:      &out,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.RunLoop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, scraper.calls, 2, "a failing pass must not end the loop")
}
