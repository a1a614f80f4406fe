package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaDispatcher_WritesEnvelopeKeyedByOrder(t *testing.T) {
	writer := &recordingWriter{}
	dispatcher := newKafkaDispatcher(writer, "erp-orders-api")
	occurred := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	err := dispatcher.Dispatch(context.Background(), LifecycleEvent{
		Type:       models.EventOrderShipped,
		OrderID:    42,
		FromStatus: models.OrderStatusConfirmed,
		ToStatus:   models.OrderStatusShipped,
		ActorID:    7,
		ActorRole:  models.RoleInventory,
		Order:      &models.Order{ID: 42, Status: models.OrderStatusShipped},
		OccurredAt: occurred,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "OrderShipped", string(msg.Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "OrderShipped", env.EventType)
	assert.Equal(t, EventVersion, env.EventVersion)
	assert.True(t, occurred.Equal(env.OccurredAt))
	assert.Equal(t, "erp-orders-api", env.Producer)
	assert.Equal(t, "42", env.CorrelationID)

	var payload LifecycleEvent
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, uint(42), payload.OrderID)
	assert.Equal(t, models.OrderStatusConfirmed, payload.FromStatus)
	assert.Equal(t, models.RoleInventory, payload.ActorRole)
	require.NotNil(t, payload.Order)
	assert.Equal(t, models.OrderStatusShipped, payload.Order.Status)

	require.NoError(t, dispatcher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaDispatcher_UniqueEventIDs(t *testing.T) {
	writer := &recordingWriter{}
	dispatcher := newKafkaDispatcher(writer, "erp-orders-api")

	for i := 0; i < 2; i++ {
		require.NoError(t, dispatcher.Dispatch(context.Background(), LifecycleEvent{
			Type:    models.EventOrderCreated,
			OrderID: 1,
		}))
	}

	var first, second Envelope
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &first))
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &second))
	assert.NotEqual(t, first.EventID, second.EventID)
}

func TestKafkaDispatcher_WriteError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	dispatcher := newKafkaDispatcher(writer, "erp-orders-api")

	err := dispatcher.Dispatch(context.Background(), LifecycleEvent{Type: models.EventOrderCreated, OrderID: 3})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "order 3")
}

func TestLogDispatcher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := NewLogDispatcher(zap.New(core))

	err := dispatcher.Dispatch(context.Background(), LifecycleEvent{
		Type:      models.EventOrderConfirmed,
		OrderID:   9,
		ActorID:   2,
		ActorRole: models.RoleSalesManager,
	})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "order lifecycle event", entry.Message)
	assert.Equal(t, "OrderConfirmed", entry.ContextMap()["event_type"])
	assert.Equal(t, uint64(9), entry.ContextMap()["order_id"])
}

func TestMockDispatcher(t *testing.T) {
	mock := NewMockDispatcher()
	ctx := context.Background()

	require.NoError(t, mock.Dispatch(ctx, LifecycleEvent{Type: models.EventOrderCreated, OrderID: 1}))
	mock.SetFail(true)
	assert.ErrorIs(t, mock.Dispatch(ctx, LifecycleEvent{Type: models.EventOrderShipped, OrderID: 1}), ErrMockDispatch)

	events := mock.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOrderCreated, events[0].Type)

	mock.Reset()
	assert.Empty(t, mock.Events())
}
