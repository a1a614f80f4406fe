package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

const currentUserKey = "current_user"

// UserResolver finds the local account for an Auth0 subject
type UserResolver interface {
	GetByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error)
}

// RequireUser loads the caller's account after token validation. Callers
// without an account get 404 USER_NOT_FOUND and suspended accounts get 403.
func RequireUser(users UserResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
			return
		}

		user, err := users.GetByAuth0ID(c.Request.Context(), auth0ID)
		if err != nil {
			if services.IsKind(err, services.KindNotFound) {
				abortWithError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
				return
			}
			log.Error("failed to resolve current user", zap.String("auth0_id", auth0ID), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user")
			return
		}
		if user.Status != models.UserStatusActive {
			abortWithError(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", "This account is suspended")
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// GetCurrentUser returns the account stored by RequireUser
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "Current user not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "Current user is not in the expected format"}
	}
	return user, nil
}
