// Package events publishes ORDER_SYNCED events to a Redis stream so
// other services can react to forwarded orders.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clarastars/zyda-order-sync/internal/dispatch"
	"github.com/clarastars/zyda-order-sync/internal/models"
)

const EventTypeOrderSynced = "ORDER_SYNCED"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// OrderSyncedPayload is the event body placed on the stream.
type OrderSyncedPayload struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	OrderKey    string    `json:"order_key"`
	Phone       string    `json:"phone"`
	Outcome     string    `json:"outcome"`
	TotalAmount float64   `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
	Source      string    `json:"source"`
}

// Publisher writes sync events to a Redis stream. It plugs into the
// dispatcher as a result hook.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: slog.Default().With("component", "event_publisher"),
	}
}

// OrderSynced implements dispatch.ResultHook.
func (p *Publisher) OrderSynced(ctx context.Context, order models.Order, outcome dispatch.Outcome) error {
	payload := OrderSyncedPayload{
		EventID:     uuid.New().String(),
		EventType:   EventTypeOrderSynced,
		Timestamp:   time.Now(),
		OrderKey:    order.OrderKey,
		Phone:       order.Phone,
		Outcome:     string(outcome),
		TotalAmount: order.TotalAmount,
		ItemCount:   order.UniqueItemCount(),
		Source:      "zyda-order-sync",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": payload.EventType,
			"event_id":   payload.EventID,
			"payload":    string(data),
		},
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"order_key", payload.OrderKey,
		"outcome", payload.Outcome,
		"stream_id", result.Val(),
	)
	return nil
}
