package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// OrderController exposes the order lifecycle
type OrderController struct {
	orders *services.OrderService
	log    *zap.Logger
}

// NewOrderController creates an order controller
func NewOrderController(orders *services.OrderService, log *zap.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

// CreateOrder handles POST /api/v1/orders - creates a pending order
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctl.orders.CreateOrder(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders?status=
func (ctl *OrderController) ListOrders(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	orders, err := ctl.orders.ListOrders(c.Request.Context(), services.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id
func (ctl *OrderController) GetOrder(c *gin.Context) {
	ctl.withOrder(c, ctl.orders.GetOrder)
}

// UpdateOrder handles PUT /api/v1/orders/:id - edits a pending order
func (ctl *OrderController) UpdateOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var patch services.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctl.orders.UpdateOrder(c.Request.Context(), id, patch, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (ctl *OrderController) DeleteOrder(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctl.orders.DeleteOrder(c.Request.Context(), id, actor); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ConfirmOrder handles PATCH /api/v1/orders/:id/confirm
func (ctl *OrderController) ConfirmOrder(c *gin.Context) {
	ctl.withOrder(c, ctl.orders.ConfirmOrder)
}

// ShipOrder handles PATCH /api/v1/orders/:id/ship
func (ctl *OrderController) ShipOrder(c *gin.Context) {
	ctl.withOrder(c, ctl.orders.ShipOrder)
}

// CancelOrder handles PATCH /api/v1/orders/:id/cancel
func (ctl *OrderController) CancelOrder(c *gin.Context) {
	ctl.withOrder(c, ctl.orders.CancelOrder)
}

// ListOrderEvents handles GET /api/v1/orders/:id/events
func (ctl *OrderController) ListOrderEvents(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	events, err := ctl.orders.ListOrderEvents(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, events)
}

type orderOperation func(ctx context.Context, orderID uint, actor services.Actor) (*models.Order, error)

func (ctl *OrderController) withOrder(c *gin.Context, op orderOperation) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := op(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}
