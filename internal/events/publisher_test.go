package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clarastars/zyda-order-sync/internal/dispatch"
	"github.com/clarastars/zyda-order-sync/internal/models"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testOrder() models.Order {
	return models.Order{
		Name:        "abdelrahman",
		Phone:       "0501234567",
		TotalAmount: 74.0,
		Items:       []models.OrderItem{{Name: "Cheese Burger", Quantity: 2}},
		OrderKey:    "#GD7G-GAWP",
	}
}

func TestOrderSyncedPublishesEvent(t *testing.T) {
	client := new(MockRedisClient)

	var captured *redis.XAddArgs
	client.On("XAdd", mock.Anything, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		captured = args
		return args.Stream == "stream:order_sync"
	})).Return(nil)

	p := NewPublisher(client, "stream:order_sync")
	err := p.OrderSynced(context.Background(), testOrder(), dispatch.OutcomeCreated)

	require.NoError(t, err)
	client.AssertExpectations(t)

	values := captured.Values.(map[string]interface{})
	assert.Equal(t, EventTypeOrderSynced, values["event_type"])
	assert.NotEmpty(t, values["event_id"])

	var payload OrderSyncedPayload
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &payload))
	assert.Equal(t, "#GD7G-GAWP", payload.OrderKey)
	assert.Equal(t, "0501234567", payload.Phone)
	assert.Equal(t, "created", payload.Outcome)
	assert.Equal(t, 1, payload.ItemCount)
	assert.Equal(t, "zyda-order-sync", payload.Source)
}

func TestOrderSyncedRedisError(t *testing.T) {
	client := new(MockRedisClient)
	client.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	p := NewPublisher(client, "stream:order_sync")
	err := p.OrderSynced(context.Background(), testOrder(), dispatch.OutcomeCreated)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}
