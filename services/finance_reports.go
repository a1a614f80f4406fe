package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/shopspring/decimal"
)

// ProductCostRatio is the share of a selling price counted as product cost in the profit report
var ProductCostRatio = decimal.RequireFromString("0.6")

// WorkingDaysPerMonth divides a monthly salary into a daily rate
const WorkingDaysPerMonth = 30

// SalesPerformanceRow is one salesperson's sold orders
type SalesPerformanceRow struct {
	UserID         uint            `json:"user_id"`
	SalesPerson    string          `json:"sales_person"`
	Email          string          `json:"email"`
	Role           models.Role     `json:"role"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	OrdersCount    int64           `json:"orders_count"`
	TotalItemsSold int64           `json:"total_items_sold"`
}

// Expenses splits the costs of the profit report
type Expenses struct {
	Salaries     decimal.Decimal `json:"salaries"`
	ProductCosts decimal.Decimal `json:"product_costs"`
	Total        decimal.Decimal `json:"total"`
}

// ProfitReport is revenue less payroll and estimated product cost
type ProfitReport struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Expenses     Expenses        `json:"expenses"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"` // percent of revenue, 2 places
	GeneratedAt  time.Time       `json:"generated_at"`
}

// AttendanceCostRow is the salary earned by one user's completed days
type AttendanceCostRow struct {
	UserID         uint            `json:"user_id"`
	FullName       string          `json:"full_name"`
	Role           models.Role     `json:"role"`
	Salary         decimal.Decimal `json:"salary"`
	AttendanceDays int64           `json:"attendance_days"`
	CheckedOutDays int64           `json:"checked_out_days"`
	DailySalary    decimal.Decimal `json:"daily_salary"`
	EarnedSalary   decimal.Decimal `json:"earned_salary"`
}

// SalesPerformance ranks order creators by the revenue of their confirmed and shipped orders
func (s *ReportService) SalesPerformance(ctx context.Context, actor Actor) ([]SalesPerformanceRow, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}

	rows, err := cached(ctx, s, "finance:sales-performance", func() (*[]SalesPerformanceRow, error) {
		orders, err := s.soldOrders(s.db.WithContext(ctx).Preload("CreatedBy", unscoped))
		if err != nil {
			return nil, err
		}

		byUser := make(map[uint]*SalesPerformanceRow)
		for _, order := range orders {
			row, ok := byUser[order.CreatedByID]
			if !ok {
				row = &SalesPerformanceRow{UserID: order.CreatedByID, TotalRevenue: decimal.Zero}
				if order.CreatedBy != nil {
					row.SalesPerson = order.CreatedBy.FullName
					row.Email = order.CreatedBy.Email
					row.Role = order.CreatedBy.Role
				}
				byUser[order.CreatedByID] = row
			}
			total, items := orderTotal(order)
			row.TotalRevenue = row.TotalRevenue.Add(total)
			row.TotalItemsSold += int64(items)
			row.OrdersCount++
		}

		result := make([]SalesPerformanceRow, 0, len(byUser))
		for _, row := range byUser {
			result = append(result, *row)
		}
		sort.Slice(result, func(i, j int) bool {
			if c := result[i].TotalRevenue.Cmp(result[j].TotalRevenue); c != 0 {
				return c > 0
			}
			return result[i].UserID < result[j].UserID
		})
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return *rows, nil
}

// ProfitReport subtracts the payroll and ProductCostRatio of sold value from revenue
func (s *ReportService) ProfitReport(ctx context.Context, actor Actor) (*ProfitReport, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}

	return cached(ctx, s, "finance:profit", func() (*ProfitReport, error) {
		db := s.db.WithContext(ctx)
		revenue, err := s.revenue(db, 0)
		if err != nil {
			return nil, err
		}
		payroll, err := s.payroll(db)
		if err != nil {
			return nil, err
		}

		productCosts := revenue.Mul(ProductCostRatio).Round(2)
		expenses := payroll.Add(productCosts)
		net := revenue.Sub(expenses)

		report := &ProfitReport{
			TotalRevenue: *revenue,
			Expenses: Expenses{
				Salaries:     *payroll,
				ProductCosts: productCosts,
				Total:        expenses,
			},
			NetProfit:    net,
			ProfitMargin: decimal.Zero,
			GeneratedAt:  s.now().UTC(),
		}
		if revenue.IsPositive() {
			report.ProfitMargin = net.Div(*revenue).Mul(decimal.NewFromInt(100)).Round(2)
		}
		return report, nil
	})
}

// AttendanceCostReport prices each user's checked-out days at salary / WorkingDaysPerMonth
func (s *ReportService) AttendanceCostReport(ctx context.Context, filter AttendanceFilter, actor Actor) ([]AttendanceCostRow, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("finance:attendance-costs:%s:%s:%d", filter.From, filter.To, filter.UserID)
	rows, err := cached(ctx, s, key, func() (*[]AttendanceCostRow, error) {
		totals, err := attendanceTotals(s.db.WithContext(ctx), filter)
		if err != nil {
			return nil, err
		}

		days := decimal.NewFromInt(WorkingDaysPerMonth)
		result := make([]AttendanceCostRow, 0, len(totals))
		for _, t := range totals {
			daily := t.user.Salary.Div(days)
			result = append(result, AttendanceCostRow{
				UserID:         t.user.ID,
				FullName:       t.user.FullName,
				Role:           t.user.Role,
				Salary:         t.user.Salary,
				AttendanceDays: t.totalDays,
				CheckedOutDays: t.checkedOutDays,
				DailySalary:    daily.Round(2),
				EarnedSalary:   daily.Mul(decimal.NewFromInt(t.checkedOutDays)).Round(2),
			})
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return *rows, nil
}
