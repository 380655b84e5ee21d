package inproc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

func TestBus_DeliversPublishedEvent(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan messaging.Message, 1)
	subscribed := make(chan error, 1)
	go func() {
		subscribed <- bus.Consume(ctx, messaging.TopicOrders, "test", func(_ context.Context, msg messaging.Message) error {
			select {
			case received <- msg:
			default:
			}
			return nil
		})
	}()

	event := entity.OrderDeleted{OrderID: "o-1", TenantID: "t-1", Status: entity.StatusNew}
	require.Eventually(t, func() bool {
		if err := bus.PublishEvent(ctx, messaging.TopicOrders, "o-1", event); err != nil {
			return false
		}
		select {
		case msg := <-received:
			assert.Equal(t, "o-1", msg.Key)
			assert.Equal(t, "OrderDeleted", msg.EventType)

			var got entity.OrderDeleted
			require.NoError(t, json.Unmarshal(msg.Payload, &got))
			assert.Equal(t, event, got)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-subscribed)
}

func TestBus_PublishWithoutSubscriberSucceeds(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	defer bus.Close()

	err := bus.PublishEvent(context.Background(), messaging.TopicInventory, "k", map[string]int{"n": 1})
	assert.NoError(t, err)
}
