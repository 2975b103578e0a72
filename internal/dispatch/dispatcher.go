// Package dispatch forwards structured orders to the downstream order
// API and classifies each attempt as created, updated, skipped or
// failed.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clarastars/zyda-order-sync/internal/ledger"
	"github.com/clarastars/zyda-order-sync/internal/models"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Stats aggregates the outcomes of one sync pass.
type Stats struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (s *Stats) Record(outcome Outcome) {
	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// Summary renders the fixed-format result line parsed by downstream
// tooling. The format must not change.
func (s Stats) Summary() string {
	return fmt.Sprintf("SUMMARY created=%d updated=%d skipped=%d failed=%d",
		s.Created, s.Updated, s.Skipped, s.Failed)
}

// ResultHook observes every dispatch result. Hook errors are logged and
// never affect the outcome.
type ResultHook interface {
	OrderSynced(ctx context.Context, order models.Order, outcome Outcome) error
}

type Dispatcher struct {
	endpoint string
	client   *http.Client
	ledger   *ledger.Ledger
	hooks    []ResultHook
	logger   *slog.Logger
}

func New(endpoint string, timeout time.Duration, l *ledger.Ledger, hooks ...ResultHook) *Dispatcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		ledger:   l,
		hooks:    hooks,
		logger:   slog.Default().With("component", "dispatcher"),
	}
}

type orderPayload struct {
	Name        *string            `json:"name"`
	Phone       string             `json:"phone"`
	Address     *string            `json:"address"`
	Items       []models.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	OrderKey    string             `json:"zyda_order_key"`
}

type apiResponse struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// Send posts one order to the endpoint and classifies the result. A
// missing phone or order key skips the order locally; any transport or
// HTTP error counts as failed with no retry, the order will simply be
// re-scraped next cycle because its phone never entered the ledger.
func (d *Dispatcher) Send(ctx context.Context, order models.Order) Outcome {
	if !order.HasPhone() {
		d.logger.Warn("skipping order without phone", "order_key", order.OrderKey)
		return OutcomeSkipped
	}
	if order.OrderKey == "" {
		d.logger.Warn("skipping order without order key", "phone", order.Phone)
		return OutcomeSkipped
	}

	wasProcessed := d.ledger.Contains(order.Phone)

	body, err := json.Marshal(buildPayload(order))
	if err != nil {
		d.logger.Error("failed to encode order", "order_key", order.OrderKey, "error", err)
		return OutcomeFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("failed to build request", "order_key", order.OrderKey, "error", err)
		return OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("order sync request failed",
			"order_key", order.OrderKey, "phone", order.Phone, "error", err)
		return OutcomeFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		d.logger.Error("order sync rejected",
			"order_key", order.OrderKey, "status", resp.StatusCode, "body", string(preview))
		return OutcomeFailed
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		d.logger.Error("failed to decode sync response", "order_key", order.OrderKey, "error", err)
		return OutcomeFailed
	}

	outcome := classify(result)
	switch outcome {
	case OutcomeCreated:
		if !wasProcessed {
			d.ledger.Add(order.Phone)
		}
		d.logger.Info("order created", "order_key", order.OrderKey, "phone", order.Phone)
	case OutcomeUpdated:
		d.ledger.MarkDirty()
		d.logger.Info("order updated", "order_key", order.OrderKey, "phone", order.Phone)
	case OutcomeSkipped:
		d.logger.Info("order already exists", "order_key", order.OrderKey, "phone", order.Phone)
	}
	return outcome
}

// SyncAll dispatches each order sequentially, flushing the ledger after
// every change, and returns the aggregated stats.
func (d *Dispatcher) SyncAll(ctx context.Context, orders []models.Order) Stats {
	stats := Stats{Total: len(orders)}

	for _, order := range orders {
		outcome := d.Send(ctx, order)
		stats.Record(outcome)
		d.ledger.Flush()
		d.notifyHooks(ctx, order, outcome)
	}

	return stats
}

func (d *Dispatcher) notifyHooks(ctx context.Context, order models.Order, outcome Outcome) {
	for _, hook := range d.hooks {
		if err := hook.OrderSynced(ctx, order, outcome); err != nil {
			d.logger.Warn("result hook failed", "order_key", order.OrderKey, "error", err)
		}
	}
}

func buildPayload(order models.Order) orderPayload {
	p := orderPayload{
		Phone:       order.Phone,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		OrderKey:    order.OrderKey,
	}
	if p.Items == nil {
		p.Items = []models.OrderItem{}
	}
	if order.Name != "" {
		p.Name = &order.Name
	}
	if order.Address != "" {
		p.Address = &order.Address
	}
	return p
}

// classify maps the API response onto an outcome. The API reports the
// operation either in a dedicated field or buried in a localized
// message. A successful response that matches nothing is treated as
// created; the upstream API dedupes by order key, so the optimistic
// default at worst re-counts.
func classify(result apiResponse) Outcome {
	operation := strings.ToLower(result.Operation)
	if operation == "" {
		operation = strings.ToLower(result.Message)
	}
	if operation == "" {
		operation = "created"
	}

	switch {
	case strings.Contains(operation, "created"), strings.Contains(result.Message, "نجاح"):
		return OutcomeCreated
	case operation == "skipped",
		strings.Contains(operation, "exists"),
		strings.Contains(result.Message, "موجود"):
		return OutcomeSkipped
	case strings.Contains(operation, "updated"):
		return OutcomeUpdated
	default:
		return OutcomeCreated
	}
}
