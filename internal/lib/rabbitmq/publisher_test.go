package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindTestQueue(t *testing.T, ch *amqp.Channel, exchange, routingKey string) <-chan amqp.Delivery {
	t.Helper()
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, routingKey, exchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)
	return deliveries
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	const exchange = "audit-publish-test"
	ch, err := SetupExchange(conn, exchange)
	require.NoError(t, err)

	consumer, err := conn.Channel()
	require.NoError(t, err)
	defer consumer.Close()
	deliveries := bindTestQueue(t, consumer, exchange, "admin.#")

	pub := NewPublisher(ch, exchange, "admin.audit")
	defer pub.Close()

	msg := map[string]any{"action": "registration_toggle", "record_id": float64(1)}
	require.NoError(t, pub.Publish(ctx, msg))

	select {
	case d := <-deliveries:
		var got map[string]any
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, msg, got)
		assert.Equal(t, "application/json", d.ContentType)
		assert.Equal(t, "admin.audit", d.RoutingKey)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message via exchange")
	}

	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}
		err := pub.Publish(ctx, badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})
}

func TestPublisher_CanceledContext(t *testing.T) {
	pub := NewPublisher(nil, "audit", "admin.audit")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Publish(ctx, map[string]any{"a": 1})
	assert.ErrorIs(t, err, context.Canceled)
}
