package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/services"
	"go.uber.org/zap"
)

// ReportController exposes the role-scoped dashboard and finance reports
type ReportController struct {
	reports *services.ReportService
	log     *zap.Logger
	now     func() time.Time
}

// NewReportController creates a report controller
func NewReportController(reports *services.ReportService, log *zap.Logger) *ReportController {
	return &ReportController{reports: reports, log: log, now: time.Now}
}

// Dashboard handles GET /api/v1/dashboard
func (ctl *ReportController) Dashboard(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	dashboard, err := ctl.reports.Dashboard(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, dashboard)
}

// TotalRevenue handles GET /api/v1/finance/revenue
func (ctl *ReportController) TotalRevenue(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	summary, err := ctl.reports.TotalRevenue(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, summary)
}

// MonthlyRevenue handles GET /api/v1/finance/revenue/monthly?year= (defaults to the current year)
func (ctl *ReportController) MonthlyRevenue(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	year := ctl.now().UTC().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Query parameter year must be an integer")
			return
		}
		year = parsed
	}

	report, err := ctl.reports.MonthlyRevenue(c.Request.Context(), year, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

// OrdersReport handles GET /api/v1/finance/orders?status=&from=&to=
func (ctl *ReportController) OrdersReport(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	from, ok := queryDate(c, "from", false)
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", true)
	if !ok {
		return
	}

	report, err := ctl.reports.OrdersReport(c.Request.Context(), services.OrdersReportFilter{
		Status: models.OrderStatus(c.Query("status")),
		From:   from,
		To:     to,
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

// SalariesReport handles GET /api/v1/finance/salaries
func (ctl *ReportController) SalariesReport(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	report, err := ctl.reports.SalariesReport(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

// SalesPerformance handles GET /api/v1/finance/sales-performance
func (ctl *ReportController) SalesPerformance(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	rows, err := ctl.reports.SalesPerformance(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, rows)
}

// ProfitReport handles GET /api/v1/finance/profit
func (ctl *ReportController) ProfitReport(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}

	report, err := ctl.reports.ProfitReport(c.Request.Context(), actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

// AttendanceCosts handles GET /api/v1/finance/attendance-costs?from=&to=&user_id=
func (ctl *ReportController) AttendanceCosts(c *gin.Context) {
	actor, _, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}

	rows, err := ctl.reports.AttendanceCostReport(c.Request.Context(), services.AttendanceFilter{
		From:   c.Query("from"),
		To:     c.Query("to"),
		UserID: userID,
	}, actor)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, rows)
}
