package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusCanTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatus("unknown"), OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusShipped.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusConfirmed.Terminal())
	assert.False(t, OrderStatus("bogus").Terminal())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "orders", Order{}.TableName())
	assert.Equal(t, "order_lines", OrderLine{}.TableName())
	assert.Equal(t, "order_events", OrderEvent{}.TableName())
	assert.Equal(t, "products", Product{}.TableName())
	assert.Equal(t, "customers", Customer{}.TableName())
	assert.Equal(t, "attendance", Attendance{}.TableName())
	assert.Equal(t, "leaves", Leave{}.TableName())
}
