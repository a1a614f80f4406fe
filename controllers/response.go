package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/middleware"
	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/services"
	"github.com/kendall-kelly/erp-orders-api/utils"
	"go.uber.org/zap"
)

// errorStatus maps service error kinds onto HTTP statuses and envelope codes
var errorStatus = map[services.ErrorKind]struct {
	status int
	code   string
}{
	services.KindAuthorization:     {http.StatusForbidden, "FORBIDDEN"},
	services.KindNotFound:          {http.StatusNotFound, "NOT_FOUND"},
	services.KindInvalidTransition: {http.StatusConflict, "INVALID_TRANSITION"},
	services.KindInsufficientStock: {http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
	services.KindConflict:          {http.StatusConflict, "CONFLICT"},
	services.KindValidation:        {http.StatusBadRequest, "VALIDATION_ERROR"},
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondError translates a service failure into the error envelope.
// Unclassified errors are logged and hidden behind INTERNAL_ERROR.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var fileErr *utils.FileUploadError
	if errors.As(err, &fileErr) {
		respondErrorCode(c, http.StatusBadRequest, fileErr.Code, fileErr.Message)
		return
	}

	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) {
		if mapped, ok := errorStatus[serviceErr.Kind]; ok {
			respondErrorCode(c, mapped.status, mapped.code, serviceErr.Message)
			return
		}
	}

	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)
	respondErrorCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// currentActor returns the caller resolved by middleware.RequireUser
func currentActor(c *gin.Context) (services.Actor, *models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return services.Actor{}, nil, false
	}
	return services.Actor{ID: user.ID, Role: user.Role}, user, true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Query parameter "+name+" must be a positive integer")
		return 0, false
	}
	return uint(v), true
}

// queryDate parses a YYYY-MM-DD query parameter. endOfDay moves the result to the last instant of that day.
func queryDate(c *gin.Context, name string, endOfDay bool) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Query parameter "+name+" must be formatted YYYY-MM-DD")
		return nil, false
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, true
}
