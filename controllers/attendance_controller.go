package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// AttendanceNoteRequest is the optional body of check-in and check-out
type AttendanceNoteRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// AttendanceController exposes daily attendance
type AttendanceController struct {
	attendance *services.AttendanceService
	log        *zap.Logger
}

// NewAttendanceController creates an attendance controller
func NewAttendanceController(attendance *services.AttendanceService, log *zap.Logger) *AttendanceController {
	return &AttendanceController{attendance: attendance, log: log}
}

// CheckIn handles POST /api/v1/attendance/check-in
func (ctl *AttendanceController) CheckIn(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	note, ok := bindNote(c)
	if !ok {
		return
	}

	record, err := ctl.attendance.CheckIn(c.Request.Context(), note, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, record)
}

// CheckOut handles POST /api/v1/attendance/check-out
func (ctl *AttendanceController) CheckOut(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	note, ok := bindNote(c)
	if !ok {
		return
	}

	record, err := ctl.attendance.CheckOut(c.Request.Context(), note, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, record)
}

// ListMyAttendance handles GET /api/v1/attendance/me
func (ctl *AttendanceController) ListMyAttendance(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	records, err := ctl.attendance.ListMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, records)
}

// ListAttendance handles GET /api/v1/attendance?from=&to=&user_id=
func (ctl *AttendanceController) ListAttendance(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}

	records, err := ctl.attendance.ListAll(c.Request.Context(), services.AttendanceFilter{
		From:   c.Query("from"),
		To:     c.Query("to"),
		UserID: userID,
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, records)
}

// EditAttendance handles PUT /api/v1/attendance/:id
func (ctl *AttendanceController) EditAttendance(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.AttendanceEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	record, err := ctl.attendance.Edit(c.Request.Context(), id, req, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, record)
}

// bindNote reads the optional note body; an empty body is allowed
func bindNote(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req AttendanceNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return "", false
	}
	return req.Note, true
}

// DeleteAttendance handles DELETE /api/v1/attendance/:id
func (ctl *AttendanceController) DeleteAttendance(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctl.attendance.Remove(c.Request.Context(), id, actor); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// AttendanceStats handles GET /api/v1/attendance/stats?from=&to=&user_id=
func (ctl *AttendanceController) AttendanceStats(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}

	stats, err := ctl.attendance.Stats(c.Request.Context(), services.AttendanceFilter{
		From:   c.Query("from"),
		To:     c.Query("to"),
		UserID: userID,
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
