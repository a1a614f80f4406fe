package models

import (
	"time"
)

// EventType names an order lifecycle event
type EventType string

const (
	EventOrderCreated   EventType = "OrderCreated"
	EventOrderUpdated   EventType = "OrderUpdated"
	EventOrderConfirmed EventType = "OrderConfirmed"
	EventOrderShipped   EventType = "OrderShipped"
	EventOrderCancelled EventType = "OrderCancelled"
	EventOrderDeleted   EventType = "OrderDeleted"
)

// OrderEvent is an append-only audit row written in the same transaction as the
// transition it records. Rows outlive a deleted order, so OrderID has no foreign key.
type OrderEvent struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	Type       EventType   `gorm:"type:varchar(32);not null" json:"type"`
	FromStatus OrderStatus `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   OrderStatus `gorm:"type:varchar(20)" json:"to_status,omitempty"`
	ActorID    uint        `gorm:"not null;index" json:"actor_id"`
	Actor      *User       `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName specifies the table name for the OrderEvent model
func (OrderEvent) TableName() string {
	return "order_events"
}
