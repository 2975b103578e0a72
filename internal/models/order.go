package models

import (
	"strings"
	"time"
)

// Order is a normalized order record scraped from the dashboard,
// ready to be dispatched downstream.
type Order struct {
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	TotalAmount float64     `json:"total_amount"`
	Items       []OrderItem `json:"items"`
	OrderKey    string      `json:"zyda_order_key"`
	ScrapedAt   time.Time   `json:"scraped_at"`
}

type OrderItem struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price"`
}

// HasPhone reports whether the order carries a usable phone number.
// Orders without one are never forwarded.
func (o *Order) HasPhone() bool {
	return strings.TrimSpace(o.Phone) != ""
}

// UniqueItemCount counts distinct item names, ignoring case.
func (o *Order) UniqueItemCount() int {
	seen := make(map[string]struct{})
	for _, item := range o.Items {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return len(o.Items)
	}
	return len(seen)
}
