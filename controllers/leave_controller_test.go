package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaveEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	employee := env.user(t, models.RoleEmployee)
	hr := env.user(t, models.RoleHR)

	start := time.Now().UTC().AddDate(0, 0, 7)
	day := func(offset int) string { return start.AddDate(0, 0, offset).Format("2006-01-02") }

	w, response := env.do(t, http.MethodPost, "/api/v1/leaves", employee.Auth0ID, map[string]interface{}{
		"start_date": day(0), "end_date": day(2), "reason": "family visit",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	leave := dataObject(t, response)
	assert.Equal(t, "pending", leave["status"])
	assert.Equal(t, float64(3), leave["total_days"])
	path := fmt.Sprintf("/api/v1/leaves/%d", uint(leave["id"].(float64)))

	w, response = env.do(t, http.MethodPost, "/api/v1/leaves", employee.Auth0ID, map[string]interface{}{
		"start_date": day(1), "end_date": day(3), "reason": "again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(response))

	w, response = env.do(t, http.MethodPost, "/api/v1/leaves", employee.Auth0ID, map[string]interface{}{"start_date": day(0)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = env.do(t, http.MethodGet, "/api/v1/leaves", employee.Auth0ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, response = env.do(t, http.MethodGet, "/api/v1/leaves?status=pending", hr.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, response), 1)

	w, response = env.do(t, http.MethodPatch, path+"/review", hr.Auth0ID, map[string]interface{}{"note": "missing decision"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, response = env.do(t, http.MethodPatch, path+"/review", hr.Auth0ID, map[string]interface{}{"approve": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", dataObject(t, response)["status"])

	w, response = env.do(t, http.MethodPatch, path+"/review", hr.Auth0ID, map[string]interface{}{"approve": false})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(response))

	w, response = env.do(t, http.MethodDelete, path, employee.Auth0ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(response))

	w, response = env.do(t, http.MethodPost, "/api/v1/leaves", employee.Auth0ID, map[string]interface{}{
		"start_date": day(10), "end_date": day(11), "reason": "rest",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	pending := fmt.Sprintf("/api/v1/leaves/%d", uint(dataObject(t, response)["id"].(float64)))

	w, _ = env.do(t, http.MethodDelete, pending, hr.Auth0ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, http.MethodDelete, pending, employee.Auth0ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, response = env.do(t, http.MethodGet, "/api/v1/leaves/me", employee.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, response), 1)
}

func TestLeaveEditAndStats(t *testing.T) {
	env := newAPIEnv(t)
	employee := env.user(t, models.RoleEmployee)
	other := env.user(t, models.RoleSales)
	hr := env.user(t, models.RoleHR)

	start := time.Now().UTC().AddDate(0, 0, 7)
	day := func(offset int) string { return start.AddDate(0, 0, offset).Format("2006-01-02") }

	w, response := env.do(t, http.MethodPost, "/api/v1/leaves", employee.Auth0ID, map[string]interface{}{
		"start_date": day(0), "end_date": day(2), "reason": "family visit",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := fmt.Sprintf("/api/v1/leaves/%d", uint(dataObject(t, response)["id"].(float64)))

	w, response = env.do(t, http.MethodPut, path, employee.Auth0ID, map[string]interface{}{
		"end_date": day(4), "reason": "longer visit",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := dataObject(t, response)
	assert.Equal(t, float64(5), edited["total_days"])
	assert.Equal(t, "longer visit", edited["reason"])

	w, response = env.do(t, http.MethodPut, path, other.Auth0ID, map[string]interface{}{"reason": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = env.do(t, http.MethodPut, path, employee.Auth0ID, map[string]interface{}{"reason": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = env.do(t, http.MethodPatch, path+"/review", hr.Auth0ID, map[string]interface{}{"approve": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, response = env.do(t, http.MethodPut, path, employee.Auth0ID, map[string]interface{}{"reason": "too late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(response))

	w, response = env.do(t, http.MethodPut, path, hr.Auth0ID, map[string]interface{}{"end_date": day(3)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(4), dataObject(t, response)["total_days"])

	w, response = env.do(t, http.MethodPut, "/api/v1/leaves/999", hr.Auth0ID, map[string]interface{}{"reason": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(response))

	w, response = env.do(t, http.MethodGet, "/api/v1/leaves/stats", hr.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := dataList(t, response)
	require.Len(t, stats, 1)
	row := stats[0].(map[string]interface{})
	assert.Equal(t, float64(employee.ID), row["user_id"])
	leaves := row["leaves"].([]interface{})
	require.Len(t, leaves, 1)
	assert.Equal(t, "approved", leaves[0].(map[string]interface{})["status"])
	assert.Equal(t, float64(4), leaves[0].(map[string]interface{})["total_days"])

	w, response = env.do(t, http.MethodGet, "/api/v1/leaves/stats?status=pending", hr.Auth0ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataList(t, response))

	w, response = env.do(t, http.MethodGet, "/api/v1/leaves/stats?from=soon", hr.Auth0ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = env.do(t, http.MethodGet, "/api/v1/leaves/stats", employee.Auth0ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
