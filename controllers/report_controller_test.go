package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	sales := env.user(t, models.RoleSales)
	manager := env.user(t, models.RoleSalesManager)
	inventory := env.user(t, models.RoleInventory)
	finance := env.user(t, models.RoleFinance)
	customer := testutil.CreateCustomer(t, env.db, sales.ID)
	product := testutil.CreateProduct(t, env.db, "Widget", 10, "2.50", inventory.ID)

	w, response := env.do(t, http.MethodPost, "/api/v1/orders", sales.Auth0ID, map[string]interface{}{
		"customer_id": customer.ID,
		"lines":       []map[string]interface{}{{"product_id": product.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderPath := fmt.Sprintf("/api/v1/orders/%d", uint(dataObject(t, response)["id"].(float64)))
	w, _ = env.do(t, http.MethodPatch, orderPath+"/confirm", manager.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/revenue", finance.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	revenue, ok := dataObject(t, response)["total_revenue"].(string)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("10.00").Equal(decimal.RequireFromString(revenue)), "got %s", revenue)

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/revenue/monthly", finance.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(time.Now().UTC().Year()), dataObject(t, response)["year"])

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/revenue/monthly?year=nope", finance.Auth0ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = env.do(t, http.MethodGet, "/api/v1/finance/orders?status=confirmed", finance.Auth0ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/orders?from=yesterday", finance.Auth0ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = env.do(t, http.MethodGet, "/api/v1/finance/salaries", finance.Auth0ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/revenue", sales.Auth0ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	for _, user := range []*models.User{sales, manager, inventory, finance} {
		t.Run(string(user.Role), func(t *testing.T) {
			w, response := env.do(t, http.MethodGet, "/api/v1/dashboard", user.Auth0ID, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, true, response["success"])
		})
	}
}

func TestFinanceAnalysisEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	sales := env.user(t, models.RoleSales)
	manager := env.user(t, models.RoleSalesManager)
	inventory := env.user(t, models.RoleInventory)
	finance := env.user(t, models.RoleFinance)
	customer := testutil.CreateCustomer(t, env.db, sales.ID)
	product := testutil.CreateProduct(t, env.db, "Widget", 10, "2.50", inventory.ID)

	w, response := env.do(t, http.MethodPost, "/api/v1/orders", sales.Auth0ID, map[string]interface{}{
		"customer_id": customer.ID,
		"lines":       []map[string]interface{}{{"product_id": product.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderPath := fmt.Sprintf("/api/v1/orders/%d", uint(dataObject(t, response)["id"].(float64)))
	w, _ = env.do(t, http.MethodPatch, orderPath+"/confirm", manager.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/sales-performance", finance.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rows := dataList(t, response)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, float64(sales.ID), row["user_id"])
	assert.Equal(t, float64(1), row["orders_count"])
	assert.Equal(t, float64(4), row["total_items_sold"])

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/profit", finance.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profit := dataObject(t, response)
	revenue, ok := profit["total_revenue"].(string)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("10").Equal(decimal.RequireFromString(revenue)), "got %s", revenue)
	expenses := profit["expenses"].(map[string]interface{})
	costs, ok := expenses["product_costs"].(string)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("6").Equal(decimal.RequireFromString(costs)), "got %s", costs)
	assert.Contains(t, profit, "profit_margin")

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/attendance-costs", finance.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, dataList(t, response))

	w, response = env.do(t, http.MethodGet, "/api/v1/finance/attendance-costs?user_id=x", finance.Auth0ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	for _, path := range []string{"/api/v1/finance/sales-performance", "/api/v1/finance/profit", "/api/v1/finance/attendance-costs"} {
		w, response = env.do(t, http.MethodGet, path, sales.Auth0ID, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Equal(t, "FORBIDDEN", errorCode(response), path)
	}
}
