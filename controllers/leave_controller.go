package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// ReviewLeaveRequest is the body of PATCH /leaves/:id/review
type ReviewLeaveRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note"`
}

// LeaveController exposes leave requests and their review
type LeaveController struct {
	leaves *services.LeaveService
	log    *zap.Logger
}

// NewLeaveController creates a leave controller
func NewLeaveController(leaves *services.LeaveService, log *zap.Logger) *LeaveController {
	return &LeaveController{leaves: leaves, log: log}
}

// RequestLeave handles POST /api/v1/leaves
func (ctl *LeaveController) RequestLeave(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	leave, err := ctl.leaves.Request(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, leave)
}

// ListMyLeaves handles GET /api/v1/leaves/me
func (ctl *LeaveController) ListMyLeaves(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	leaves, err := ctl.leaves.ListMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, leaves)
}

// ListLeaves handles GET /api/v1/leaves?status=&user_id=&from=&to=
func (ctl *LeaveController) ListLeaves(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}

	leaves, err := ctl.leaves.ListAll(c.Request.Context(), leaveFilter(c, userID), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, leaves)
}

// ReviewLeave handles PATCH /api/v1/leaves/:id/review
func (ctl *LeaveController) ReviewLeave(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	leave, err := ctl.leaves.Review(c.Request.Context(), id, services.LeaveDecision{
		Approve: *req.Approve,
		Note:    req.Note,
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, leave)
}

// WithdrawLeave handles DELETE /api/v1/leaves/:id
func (ctl *LeaveController) WithdrawLeave(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctl.leaves.Withdraw(c.Request.Context(), id, actor); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "withdrawn": true})
}

// UpdateLeave handles PUT /api/v1/leaves/:id
func (ctl *LeaveController) UpdateLeave(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.LeaveUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	leave, err := ctl.leaves.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, leave)
}

// LeaveStats handles GET /api/v1/leaves/stats?status=&user_id=&from=&to=
func (ctl *LeaveController) LeaveStats(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}

	stats, err := ctl.leaves.Stats(c.Request.Context(), leaveFilter(c, userID), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

func leaveFilter(c *gin.Context, userID uint) services.LeaveFilter {
	return services.LeaveFilter{
		Status: c.Query("status"),
		UserID: userID,
		From:   c.Query("from"),
		To:     c.Query("to"),
	}
}
