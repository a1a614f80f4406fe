package models

import (
	"time"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether the lifecycle graph has an edge from s to next
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	return validNext[s][next]
}

// Terminal reports whether no transition leaves s
func (s OrderStatus) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Order is a sales order moving through pending -> confirmed -> shipped, or cancelled.
// Orders are hard deleted, so there is no DeletedAt column.
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	CustomerID    uint        `gorm:"not null;index" json:"customer_id"`
	Customer      *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedByID   uint        `gorm:"not null;index" json:"created_by_id"`
	CreatedBy     *User       `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Lines         []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	Note          string      `gorm:"type:text" json:"note"`
	Status        OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ConfirmedByID *uint       `json:"confirmed_by_id"`
	ConfirmedBy   *User       `gorm:"foreignKey:ConfirmedByID" json:"confirmed_by,omitempty"`
	ConfirmedAt   *time.Time  `json:"confirmed_at"`
	ShippedByID   *uint       `json:"shipped_by_id"`
	ShippedBy     *User       `gorm:"foreignKey:ShippedByID" json:"shipped_by,omitempty"`
	ShippedAt     *time.Time  `json:"shipped_at"`
	CancelledByID *uint       `json:"cancelled_by_id"`
	CancelledBy   *User       `gorm:"foreignKey:CancelledByID" json:"cancelled_by,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderLine is one (product, quantity) pair of an order
type OrderLine struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	OrderID   uint     `gorm:"not null;index" json:"order_id"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int      `gorm:"not null;check:quantity > 0" json:"quantity"`
}

// TableName specifies the table name for the OrderLine model
func (OrderLine) TableName() string {
	return "order_lines"
}
