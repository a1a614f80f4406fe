package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/middleware"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// UserController exposes self-provisioning, profiles and HR user management
type UserController struct {
	users *services.UserService
	log   *zap.Logger
}

// NewUserController creates a user controller
func NewUserController(users *services.UserService, log *zap.Logger) *UserController {
	return &UserController{users: users, log: log}
}

// CreateUser handles POST /api/v1/users - creates the caller's account from Auth0 userinfo.
// It runs before the caller has a local account, so it reads the token directly.
func (ctl *UserController) CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	user, err := ctl.users.Provision(c.Request.Context(), auth0ID, accessToken, middleware.GetRoleClaim(c))
	if err != nil {
		if _, classified := services.KindOf(err); !classified {
			ctl.log.Error("failed to provision user", zap.String("auth0_id", auth0ID), zap.Error(err))
			respondErrorCode(c, http.StatusBadGateway, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
			return
		}
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me
func (ctl *UserController) GetMyProfile(c *gin.Context) {
	_, user, ok := currentActor(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me
func (ctl *UserController) UpdateMyProfile(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctl.users.UpdateProfile(c.Request.Context(), actor.ID, req)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// ListUsers handles GET /api/v1/users?role=&status=
func (ctl *UserController) ListUsers(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	users, err := ctl.users.List(c.Request.Context(), services.UserFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, users)
}

// GetUser handles GET /api/v1/users/:id
func (ctl *UserController) GetUser(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := ctl.users.Get(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/v1/users/:id - role, status and salary changes
func (ctl *UserController) UpdateUser(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctl.users.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}
