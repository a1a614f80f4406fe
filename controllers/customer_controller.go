package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// CustomerController exposes customer management
type CustomerController struct {
	customers *services.CustomerService
	log       *zap.Logger
}

// NewCustomerController creates a customer controller
func NewCustomerController(customers *services.CustomerService, log *zap.Logger) *CustomerController {
	return &CustomerController{customers: customers, log: log}
}

// CreateCustomer handles POST /api/v1/customers
func (ctl *CustomerController) CreateCustomer(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := ctl.customers.Create(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, customer)
}

// ListCustomers handles GET /api/v1/customers
func (ctl *CustomerController) ListCustomers(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	customers, err := ctl.customers.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, customers)
}

// GetCustomer handles GET /api/v1/customers/:id
func (ctl *CustomerController) GetCustomer(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	customer, err := ctl.customers.Get(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, customer)
}

// UpdateCustomer handles PUT /api/v1/customers/:id
func (ctl *CustomerController) UpdateCustomer(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var patch services.CustomerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := ctl.customers.Update(c.Request.Context(), id, patch, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/v1/customers/:id
func (ctl *CustomerController) DeleteCustomer(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctl.customers.Delete(c.Request.Context(), id, actor); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
