package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/clarastars/zyda-order-sync/internal/dispatch"
	"github.com/clarastars/zyda-order-sync/internal/models"
)

// SyncLog records every dispatch attempt for auditing. It plugs into
// the dispatcher as a result hook.
type SyncLog struct {
	db     *DB
	logger *slog.Logger
}

func NewSyncLog(db *DB) *SyncLog {
	return &SyncLog{
		db:     db,
		logger: slog.Default().With("component", "sync_log"),
	}
}

// EnsureSchema creates the sync log table if it does not exist.
func (s *SyncLog) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS order_sync_log (
			id BIGSERIAL PRIMARY KEY,
			order_key TEXT NOT NULL,
			phone TEXT NOT NULL,
			outcome TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			payload JSONB,
			synced_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create order_sync_log: %w", err)
	}
	return nil
}

// OrderSynced implements dispatch.ResultHook.
func (s *SyncLog) OrderSynced(ctx context.Context, order models.Order, outcome dispatch.Outcome) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	query := `
		INSERT INTO order_sync_log (order_key, phone, outcome, total_amount, payload, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if err := s.db.Exec(ctx, query,
		order.OrderKey, order.Phone, string(outcome), order.TotalAmount, payload, time.Now()); err != nil {
		return fmt.Errorf("failed to insert sync log row: %w", err)
	}
	return nil
}

// OutcomeCounts returns the number of logged attempts per outcome.
func (s *SyncLog) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT outcome, COUNT(*)
		FROM order_sync_log
		GROUP BY outcome
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			continue
		}
		counts[outcome] = count
	}
	return counts, nil
}

// RecentSyncs returns the newest log entries, most recent first.
func (s *SyncLog) RecentSyncs(ctx context.Context, limit int) ([]SyncEntry, error) {
	query := `
		SELECT order_key, phone, outcome, total_amount, synced_at
		FROM order_sync_log
		ORDER BY synced_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent syncs: %w", err)
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		if err := rows.Scan(&e.OrderKey, &e.Phone, &e.Outcome, &e.TotalAmount, &e.SyncedAt); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type SyncEntry struct {
	OrderKey    string    `json:"order_key"`
	Phone       string    `json:"phone"`
	Outcome     string    `json:"outcome"`
	TotalAmount float64   `json:"total_amount"`
	SyncedAt    time.Time `json:"synced_at"`
}
