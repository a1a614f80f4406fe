package services

import (
	"context"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"go.uber.org/zap"
)

// LifecycleEvent is emitted after an order transition commits
type LifecycleEvent struct {
	Type       models.EventType   `json:"type"`
	OrderID    uint               `json:"order_id"`
	FromStatus models.OrderStatus `json:"from_status,omitempty"`
	ToStatus   models.OrderStatus `json:"to_status,omitempty"`
	ActorID    uint               `json:"actor_id"`
	ActorRole  models.Role        `json:"actor_role"`
	Order      *models.Order      `json:"order,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Dispatcher delivers lifecycle events. Delivery is best effort: callers log
// failures and never undo the transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, event LifecycleEvent) error
}

// LogDispatcher writes lifecycle events to the structured log
type LogDispatcher struct {
	log *zap.Logger
}

// NewLogDispatcher creates a dispatcher backed by log
func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// Dispatch logs the event
func (d *LogDispatcher) Dispatch(ctx context.Context, event LifecycleEvent) error {
	d.log.Info("order lifecycle event",
		zap.String("event_type", string(event.Type)),
		zap.Uint("order_id", event.OrderID),
		zap.String("from_status", string(event.FromStatus)),
		zap.String("to_status", string(event.ToStatus)),
		zap.Uint("actor_id", event.ActorID),
		zap.String("actor_role", string(event.ActorRole)),
	)
	return nil
}
