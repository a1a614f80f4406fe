package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	ID   uint
	Role models.Role
}

// LineInput is one requested (product, quantity) pair
type LineInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// CreateOrderInput describes a new order
type CreateOrderInput struct {
	CustomerID uint        `json:"customer_id" binding:"required"`
	Lines      []LineInput `json:"lines" binding:"required,min=1,dive"`
	Note       string      `json:"note"`
}

// OrderPatch replaces the given fields of a pending order. Nil fields are left alone.
type OrderPatch struct {
	CustomerID *uint        `json:"customer_id"`
	Lines      *[]LineInput `json:"lines" binding:"omitempty,dive"`
	Note       *string      `json:"note"`
}

// OrderFilter narrows ListOrders
type OrderFilter struct {
	Status models.OrderStatus
}

// OrderService is the order lifecycle state machine. Every transition is a
// conditional write on the prior status, so a transition is applied at most once.
type OrderService struct {
	db         *gorm.DB
	policy     *Policy
	ledger     *StockLedger
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewOrderService wires the state machine to its collaborators
func NewOrderService(db *gorm.DB, policy *Policy, dispatcher Dispatcher, log *zap.Logger) *OrderService {
	return &OrderService{
		db:         db,
		policy:     policy,
		ledger:     NewStockLedger(db),
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// CreateOrder persists a pending order after checking the customer and stock
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput, actor Actor) (*models.Order, error) {
	if err := s.policy.Authorize(ActionCreateOrder, actor.Role); err != nil {
		return nil, err
	}
	if input.CustomerID == 0 {
		return nil, invalid("customer_id is required")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerID:  input.CustomerID,
		CreatedByID: actor.ID,
		Note:        input.Note,
		Status:      models.OrderStatusPending,
		Lines:       toOrderLines(input.Lines),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := customerExists(tx, input.CustomerID); err != nil {
			return err
		}
		if err := s.checkLines(ctx, tx, input.Lines); err != nil {
			return err
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.audit(tx, order.ID, models.EventOrderCreated, "", models.OrderStatusPending, actor)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("actor_id", actor.ID),
		zap.Int("lines", len(order.Lines)),
	)
	return s.finish(ctx, order.ID, models.EventOrderCreated, "", models.OrderStatusPending, actor)
}

// ConfirmOrder moves a pending order to confirmed. Every line product must still exist.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, actor, transitionRule{
		action: ActionConfirmOrder,
		to:     models.OrderStatusConfirmed,
		event:  models.EventOrderConfirmed,
		byCol:  "confirmed_by_id",
		atCol:  "confirmed_at",
		effect: func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
			for _, line := range aggregateLines(order.Lines) {
				if err := productExists(tx, line.ProductID); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// ShipOrder moves a confirmed order to shipped and permanently decrements
// stock for every line. The decrements, the status write and the audit row
// commit together; any failing line leaves stock untouched.
func (s *OrderService) ShipOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, actor, transitionRule{
		action: ActionShipOrder,
		to:     models.OrderStatusShipped,
		event:  models.EventOrderShipped,
		byCol:  "shipped_by_id",
		atCol:  "shipped_at",
		effect: func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
			ledger := s.ledger.WithTx(tx)
			for _, line := range aggregateLines(order.Lines) {
				if err := ledger.CommitDecrement(ctx, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// CancelOrder moves a pending or confirmed order to cancelled. Stock is not touched.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, actor, transitionRule{
		action: ActionCancelOrder,
		to:     models.OrderStatusCancelled,
		event:  models.EventOrderCancelled,
		byCol:  "cancelled_by_id",
		atCol:  "cancelled_at",
	})
}

// UpdateOrder edits a pending order. Sales users may only edit their own orders.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID uint, patch OrderPatch, actor Actor) (*models.Order, error) {
	if err := s.policy.Authorize(ActionUpdatePendingOrder, actor.Role); err != nil {
		return nil, err
	}
	if patch.CustomerID != nil && *patch.CustomerID == 0 {
		return nil, invalid("customer_id must not be zero")
	}
	if patch.Lines != nil {
		if err := validateLines(*patch.Lines); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !s.policy.IsAllowed(ActionViewAllOrders, actor.Role) && order.CreatedByID != actor.ID {
			return forbidden("order %d belongs to another user", orderID)
		}
		if order.Status != models.OrderStatusPending {
			return invalidTransition("order %d is %s; only pending orders can be edited", orderID, order.Status)
		}

		updates := map[string]interface{}{"updated_at": s.now().UTC()}
		if patch.CustomerID != nil {
			if err := customerExists(tx, *patch.CustomerID); err != nil {
				return err
			}
			updates["customer_id"] = *patch.CustomerID
		}
		if patch.Note != nil {
			updates["note"] = *patch.Note
		}
		if patch.Lines != nil {
			if err := s.checkLines(ctx, tx, *patch.Lines); err != nil {
				return err
			}
		}

		if err := s.writeStatus(tx, orderID, models.OrderStatusPending, models.OrderStatusPending, updates); err != nil {
			return err
		}

		if patch.Lines != nil {
			if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderLine{}).Error; err != nil {
				return fmt.Errorf("delete order lines: %w", err)
			}
			lines := toOrderLines(*patch.Lines)
			for i := range lines {
				lines[i].OrderID = orderID
			}
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("create order lines: %w", err)
			}
		}

		return s.audit(tx, orderID, models.EventOrderUpdated, models.OrderStatusPending, models.OrderStatusPending, actor)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order updated", zap.Uint("order_id", orderID), zap.Uint("actor_id", actor.ID))
	return s.finish(ctx, orderID, models.EventOrderUpdated, models.OrderStatusPending, models.OrderStatusPending, actor)
}

// DeleteOrder hard deletes an order and its lines. Stock already decremented
// by a shipment is not restored. The audit trail is kept.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint, actor Actor) error {
	if err := s.policy.Authorize(ActionDeleteOrder, actor.Role); err != nil {
		return err
	}

	snapshot, err := s.loadPopulated(ctx, orderID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderLine{}).Error; err != nil {
			return fmt.Errorf("delete order lines: %w", err)
		}
		result := tx.Delete(&models.Order{}, orderID)
		if result.Error != nil {
			return fmt.Errorf("delete order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("order with ID %d not found", orderID)
		}
		return s.audit(tx, orderID, models.EventOrderDeleted, snapshot.Status, "", actor)
	})
	if err != nil {
		return err
	}

	s.log.Info("order deleted",
		zap.Uint("order_id", orderID),
		zap.String("status", string(snapshot.Status)),
		zap.Uint("actor_id", actor.ID),
	)
	s.notify(ctx, LifecycleEvent{
		Type:       models.EventOrderDeleted,
		OrderID:    orderID,
		FromStatus: snapshot.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Order:      snapshot,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// GetOrder returns a populated order the actor may see
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	if !s.canViewOrders(actor.Role) {
		return nil, forbidden("role %q cannot view orders", actor.Role)
	}

	order, err := s.loadPopulated(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.policy.IsAllowed(ActionViewAllOrders, actor.Role) && order.CreatedByID != actor.ID {
		return nil, forbidden("order %d belongs to another user", orderID)
	}
	return order, nil
}

// ListOrders returns orders newest first. Roles limited to their own orders
// only see orders they created.
func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter, actor Actor) ([]models.Order, error) {
	if !s.canViewOrders(actor.Role) {
		return nil, forbidden("role %q cannot view orders", actor.Role)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown order status %q", filter.Status)
	}

	query := populate(s.db.WithContext(ctx)).Order("created_at DESC, id DESC")
	if !s.policy.IsAllowed(ActionViewAllOrders, actor.Role) {
		query = query.Where("created_by_id = ?", actor.ID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListOrderEvents returns the audit trail of an order, oldest first. The trail
// of a deleted order stays readable by roles that see every order.
func (s *OrderService) ListOrderEvents(ctx context.Context, orderID uint, actor Actor) ([]models.OrderEvent, error) {
	if !s.canViewOrders(actor.Role) {
		return nil, forbidden("role %q cannot view orders", actor.Role)
	}

	db := s.db.WithContext(ctx)
	if !s.policy.IsAllowed(ActionViewAllOrders, actor.Role) {
		order, err := loadOrder(db, orderID)
		if err != nil {
			return nil, err
		}
		if order.CreatedByID != actor.ID {
			return nil, forbidden("order %d belongs to another user", orderID)
		}
	}

	var events []models.OrderEvent
	if err := db.Preload("Actor", unscoped).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list order events: %w", err)
	}
	if len(events) == 0 {
		return nil, notFound("order with ID %d not found", orderID)
	}
	return events, nil
}

type transitionRule struct {
	action Action
	to     models.OrderStatus
	event  models.EventType
	byCol  string
	atCol  string
	effect func(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

func (s *OrderService) transition(ctx context.Context, orderID uint, actor Actor, rule transitionRule) (*models.Order, error) {
	if err := s.policy.Authorize(rule.action, actor.Role); err != nil {
		return nil, err
	}

	var from models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if !from.CanTransition(rule.to) {
			return rejectTransition(orderID, from, rule.to)
		}

		now := s.now().UTC()
		if err := s.writeStatus(tx, orderID, from, rule.to, map[string]interface{}{
			"status":     rule.to,
			rule.byCol:   actor.ID,
			rule.atCol:   now,
			"updated_at": now,
		}); err != nil {
			return err
		}

		if rule.effect != nil {
			if err := rule.effect(ctx, tx, order); err != nil {
				return err
			}
		}
		return s.audit(tx, orderID, rule.event, from, rule.to, actor)
	})
	if err != nil {
		if IsKind(err, KindInsufficientStock) || IsKind(err, KindInvalidTransition) {
			s.log.Warn("order transition rejected",
				zap.Uint("order_id", orderID),
				zap.String("to", string(rule.to)),
				zap.Uint("actor_id", actor.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("order transitioned",
		zap.Uint("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(rule.to)),
		zap.Uint("actor_id", actor.ID),
	)
	return s.finish(ctx, orderID, rule.event, from, rule.to, actor)
}

// writeStatus applies updates only while the order is still in status from.
// Zero affected rows means the order vanished or another writer moved it first.
func (s *OrderService) writeStatus(tx *gorm.DB, orderID uint, from, to models.OrderStatus, updates map[string]interface{}) error {
	result := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update order %d: %w", orderID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := loadOrder(tx, orderID)
	if err != nil {
		return err
	}
	return rejectTransition(orderID, current.Status, to)
}

func rejectTransition(orderID uint, from, to models.OrderStatus) error {
	if from.Terminal() {
		return invalidTransition("order %d is already %s", orderID, from)
	}
	return invalidTransition("order %d cannot move from %s to %s", orderID, from, to)
}

func (s *OrderService) audit(tx *gorm.DB, orderID uint, eventType models.EventType, from, to models.OrderStatus, actor Actor) error {
	event := &models.OrderEvent{
		OrderID:    orderID,
		Type:       eventType,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
	}
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("record %s for order %d: %w", eventType, orderID, err)
	}
	return nil
}

// finish reloads the committed order and emits the lifecycle event
func (s *OrderService) finish(ctx context.Context, orderID uint, eventType models.EventType, from, to models.OrderStatus, actor Actor) (*models.Order, error) {
	order, err := s.loadPopulated(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, LifecycleEvent{
		Type:       eventType,
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Order:      order,
		OccurredAt: s.now().UTC(),
	})
	return order, nil
}

func (s *OrderService) notify(ctx context.Context, event LifecycleEvent) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.log.Error("failed to dispatch order event",
			zap.String("event_type", string(event.Type)),
			zap.Uint("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func (s *OrderService) checkLines(ctx context.Context, tx *gorm.DB, lines []LineInput) error {
	ledger := s.ledger.WithTx(tx)
	for _, line := range aggregateInputs(lines) {
		if err := ledger.CheckAvailable(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) canViewOrders(role models.Role) bool {
	return s.policy.IsAllowed(ActionViewAllOrders, role) || s.policy.IsAllowed(ActionViewOwnOrders, role)
}

func (s *OrderService) loadPopulated(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := populate(s.db.WithContext(ctx)).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order with ID %d not found", orderID)
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return &order, nil
}

// populate preloads everything an order response carries. Soft-deleted
// products and customers still show on historical orders.
func populate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer", unscoped).
		Preload("CreatedBy", unscoped).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Lines.Product", unscoped).
		Preload("ConfirmedBy", unscoped).
		Preload("ShippedBy", unscoped).
		Preload("CancelledBy", unscoped)
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func loadOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Lines").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("order with ID %d not found", orderID)
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return &order, nil
}

func customerExists(db *gorm.DB, customerID uint) error {
	var count int64
	if err := db.Model(&models.Customer{}).Where("id = ?", customerID).Count(&count).Error; err != nil {
		return fmt.Errorf("load customer %d: %w", customerID, err)
	}
	if count == 0 {
		return notFound("customer with ID %d not found", customerID)
	}
	return nil
}

func productExists(db *gorm.DB, productID uint) error {
	var count int64
	if err := db.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	if count == 0 {
		return notFound("product with ID %d not found", productID)
	}
	return nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return invalid("an order needs at least one line")
	}
	for i, line := range lines {
		if line.ProductID == 0 {
			return invalid("line %d: product_id is required", i+1)
		}
		if line.Quantity < 1 {
			return invalid("line %d: quantity must be at least 1", i+1)
		}
	}
	return nil
}

func toOrderLines(lines []LineInput) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return out
}

// aggregateInputs sums quantities per product and orders the result by product id
func aggregateInputs(lines []LineInput) []LineInput {
	totals := make(map[uint]int, len(lines))
	for _, line := range lines {
		totals[line.ProductID] += line.Quantity
	}

	out := make([]LineInput, 0, len(totals))
	for productID, qty := range totals {
		out = append(out, LineInput{ProductID: productID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func aggregateLines(lines []models.OrderLine) []LineInput {
	inputs := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return aggregateInputs(inputs)
}
