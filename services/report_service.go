package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LowStockThreshold is the quantity at or below which a product is reported as low
const LowStockThreshold = 10

// revenueStatuses are the order states that count as sold
var revenueStatuses = []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusShipped}

// RevenueSummary is Σ line quantity × product price over sold orders
type RevenueSummary struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	OrdersCount    int64           `json:"orders_count"`
	TotalItemsSold int64           `json:"total_items_sold"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// MonthRevenue is the revenue of one calendar month
type MonthRevenue struct {
	Month       string          `json:"month"` // YYYY-MM
	Revenue     decimal.Decimal `json:"revenue"`
	OrdersCount int64           `json:"orders_count"`
}

// MonthlyRevenueReport breaks one year's revenue down by month
type MonthlyRevenueReport struct {
	Year         int             `json:"year"`
	Months       []MonthRevenue  `json:"months"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// OrdersReportFilter narrows OrdersReport. Zero values mean no restriction.
type OrdersReportFilter struct {
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
}

// OrderReportRow is one order with its computed total
type OrderReportRow struct {
	OrderID       uint               `json:"order_id"`
	Customer      string             `json:"customer"`
	CustomerEmail string             `json:"customer_email"`
	SalesPerson   string             `json:"sales_person"`
	Status        models.OrderStatus `json:"status"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	ItemsCount    int                `json:"items_count"`
	CreatedAt     time.Time          `json:"created_at"`
}

// OrdersReport lists orders with totals
type OrdersReport struct {
	Orders      []OrderReportRow `json:"orders"`
	Count       int              `json:"count"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

// SalaryRow is one employee's salary line
type SalaryRow struct {
	UserID   uint            `json:"user_id"`
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Salary   decimal.Decimal `json:"salary"`
	Status   string          `json:"status"`
}

// RoleSalaries groups salaries by role
type RoleSalaries struct {
	Role          models.Role     `json:"role"`
	EmployeeCount int             `json:"employee_count"`
	TotalSalary   decimal.Decimal `json:"total_salary"`
	Employees     []SalaryRow     `json:"employees"`
}

// SalariesReport is the payroll grouped by role, largest first
type SalariesReport struct {
	TotalPayroll   decimal.Decimal `json:"total_payroll"`
	TotalEmployees int             `json:"total_employees"`
	ByRole         []RoleSalaries  `json:"by_role"`
}

// OrderStats counts orders by status
type OrderStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Shipped   int64 `json:"shipped"`
	Cancelled int64 `json:"cancelled"`
}

// EntityCounts counts the main records
type EntityCounts struct {
	Users     int64 `json:"users,omitempty"`
	Customers int64 `json:"customers"`
	Products  int64 `json:"products,omitempty"`
}

// PeopleStats summarises staff, attendance and leave
type PeopleStats struct {
	Employees       int64 `json:"employees"`
	Active          int64 `json:"active"`
	Suspended       int64 `json:"suspended"`
	TodayAttendance int64 `json:"today_attendance"`
	PendingLeaves   int64 `json:"pending_leaves"`
	ApprovedLeaves  int64 `json:"approved_leaves"`
}

// LowStockProduct is a product at or below LowStockThreshold
type LowStockProduct struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// StockStats summarises inventory
type StockStats struct {
	Products   int64             `json:"products"`
	TotalUnits int64             `json:"total_units"`
	OutOfStock int64             `json:"out_of_stock"`
	LowStock   []LowStockProduct `json:"low_stock"`
}

// PersonalStats is the caller's own attendance and leave
type PersonalStats struct {
	CheckedInToday      bool  `json:"checked_in_today"`
	AttendanceThisMonth int64 `json:"attendance_this_month"`
	PendingLeaves       int64 `json:"pending_leaves"`
	ApprovedLeaves      int64 `json:"approved_leaves"`
}

// Dashboard is a role-scoped summary. Sections a role cannot see are omitted.
type Dashboard struct {
	Role        models.Role      `json:"role"`
	Counts      *EntityCounts    `json:"counts,omitempty"`
	Orders      *OrderStats      `json:"orders,omitempty"`
	Revenue     *decimal.Decimal `json:"revenue,omitempty"`
	Payroll     *decimal.Decimal `json:"payroll,omitempty"`
	People      *PeopleStats     `json:"people,omitempty"`
	Stock       *StockStats      `json:"stock,omitempty"`
	Me          *PersonalStats   `json:"me,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ReportService aggregates committed state into dashboards and finance reports
type ReportService struct {
	db     *gorm.DB
	policy *Policy
	cache  ReportCache
	log    *zap.Logger
	now    func() time.Time
}

// NewReportService creates a report service. cache may be nil.
func NewReportService(db *gorm.DB, policy *Policy, cache ReportCache, log *zap.Logger) *ReportService {
	return &ReportService{db: db, policy: policy, cache: cache, log: log, now: time.Now}
}

// Dashboard builds the summary for the actor's role
func (s *ReportService) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if err := s.policy.Authorize(ActionViewDashboard, actor.Role); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("dashboard:%s:%d", actor.Role, actor.ID)
	return cached(ctx, s, key, func() (*Dashboard, error) {
		return s.buildDashboard(ctx, actor)
	})
}

// TotalRevenue sums revenue over every confirmed or shipped order
func (s *ReportService) TotalRevenue(ctx context.Context, actor Actor) (*RevenueSummary, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}

	return cached(ctx, s, "finance:revenue", func() (*RevenueSummary, error) {
		orders, err := s.soldOrders(s.db.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		summary := &RevenueSummary{TotalRevenue: decimal.Zero, GeneratedAt: s.now().UTC()}
		for _, order := range orders {
			total, items := orderTotal(order)
			summary.TotalRevenue = summary.TotalRevenue.Add(total)
			summary.TotalItemsSold += int64(items)
			summary.OrdersCount++
		}
		return summary, nil
	})
}

// MonthlyRevenue breaks down revenue of orders created in year by month
func (s *ReportService) MonthlyRevenue(ctx context.Context, year int, actor Actor) (*MonthlyRevenueReport, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}
	if year < 1970 || year > 9999 {
		return nil, invalid("year %d is out of range", year)
	}

	return cached(ctx, s, fmt.Sprintf("finance:monthly:%d", year), func() (*MonthlyRevenueReport, error) {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		orders, err := s.soldOrders(s.db.WithContext(ctx).Where("created_at >= ? AND created_at < ?", start, end))
		if err != nil {
			return nil, err
		}

		report := &MonthlyRevenueReport{Year: year, Months: make([]MonthRevenue, 12), TotalRevenue: decimal.Zero}
		for i := range report.Months {
			report.Months[i] = MonthRevenue{Month: fmt.Sprintf("%04d-%02d", year, i+1), Revenue: decimal.Zero}
		}
		for _, order := range orders {
			total, _ := orderTotal(order)
			m := &report.Months[order.CreatedAt.UTC().Month()-1]
			m.Revenue = m.Revenue.Add(total)
			m.OrdersCount++
			report.TotalRevenue = report.TotalRevenue.Add(total)
		}
		return report, nil
	})
}

// OrdersReport lists orders with their totals, newest first
func (s *ReportService) OrdersReport(ctx context.Context, filter OrdersReportFilter, actor Actor) (*OrdersReport, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown order status %q", filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, invalid("end date is before start date")
	}

	query := populate(s.db.WithContext(ctx)).Order("created_at DESC, id DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("load orders report: %w", err)
	}

	report := &OrdersReport{Orders: make([]OrderReportRow, 0, len(orders)), TotalAmount: decimal.Zero}
	for _, order := range orders {
		total, items := orderTotal(order)
		row := OrderReportRow{
			OrderID:     order.ID,
			Status:      order.Status,
			TotalAmount: total,
			ItemsCount:  items,
			CreatedAt:   order.CreatedAt,
		}
		if order.Customer != nil {
			row.Customer = order.Customer.Name
			row.CustomerEmail = order.Customer.Email
		}
		if order.CreatedBy != nil {
			row.SalesPerson = order.CreatedBy.FullName
		}
		report.Orders = append(report.Orders, row)
		report.TotalAmount = report.TotalAmount.Add(total)
	}
	report.Count = len(report.Orders)
	return report, nil
}

// SalariesReport groups the payroll of every user by role
func (s *ReportService) SalariesReport(ctx context.Context, actor Actor) (*SalariesReport, error) {
	if err := s.policy.Authorize(ActionViewFinance, actor.Role); err != nil {
		return nil, err
	}

	return cached(ctx, s, "finance:salaries", func() (*SalariesReport, error) {
		var users []models.User
		if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}

		groups := make(map[models.Role]*RoleSalaries)
		report := &SalariesReport{TotalPayroll: decimal.Zero}
		for _, u := range users {
			g, ok := groups[u.Role]
			if !ok {
				g = &RoleSalaries{Role: u.Role, TotalSalary: decimal.Zero}
				groups[u.Role] = g
			}
			g.Employees = append(g.Employees, SalaryRow{
				UserID:   u.ID,
				FullName: u.FullName,
				Email:    u.Email,
				Salary:   u.Salary,
				Status:   u.Status,
			})
			g.EmployeeCount++
			g.TotalSalary = g.TotalSalary.Add(u.Salary)
			report.TotalPayroll = report.TotalPayroll.Add(u.Salary)
			report.TotalEmployees++
		}

		for _, g := range groups {
			report.ByRole = append(report.ByRole, *g)
		}
		sort.Slice(report.ByRole, func(i, j int) bool {
			if c := report.ByRole[i].TotalSalary.Cmp(report.ByRole[j].TotalSalary); c != 0 {
				return c > 0
			}
			return report.ByRole[i].Role < report.ByRole[j].Role
		})
		return report, nil
	})
}

func (s *ReportService) buildDashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{Role: actor.Role, GeneratedAt: s.now().UTC()}

	var err error
	switch actor.Role {
	case models.RoleSuperAdmin:
		if d.Counts, err = s.entityCounts(db, 0); err != nil {
			return nil, err
		}
		if d.Orders, err = s.orderStats(db, 0); err != nil {
			return nil, err
		}
		if d.Revenue, err = s.revenue(db, 0); err != nil {
			return nil, err
		}
		if d.People, err = s.peopleStats(db); err != nil {
			return nil, err
		}
	case models.RoleHR:
		if d.People, err = s.peopleStats(db); err != nil {
			return nil, err
		}
	case models.RoleSalesManager:
		if d.Counts, err = s.entityCounts(db, 0); err != nil {
			return nil, err
		}
		if d.Orders, err = s.orderStats(db, 0); err != nil {
			return nil, err
		}
		if d.Revenue, err = s.revenue(db, 0); err != nil {
			return nil, err
		}
	case models.RoleSales:
		if d.Counts, err = s.entityCounts(db, actor.ID); err != nil {
			return nil, err
		}
		if d.Orders, err = s.orderStats(db, actor.ID); err != nil {
			return nil, err
		}
		if d.Revenue, err = s.revenue(db, actor.ID); err != nil {
			return nil, err
		}
	case models.RoleInventory:
		if d.Stock, err = s.stockStats(db); err != nil {
			return nil, err
		}
		if d.Orders, err = s.orderStats(db, 0); err != nil {
			return nil, err
		}
	case models.RoleFinance:
		if d.Revenue, err = s.revenue(db, 0); err != nil {
			return nil, err
		}
		if d.Orders, err = s.orderStats(db, 0); err != nil {
			return nil, err
		}
		if d.Payroll, err = s.payroll(db); err != nil {
			return nil, err
		}
	}

	if s.policy.IsAllowed(ActionRecordAttendance, actor.Role) {
		if d.Me, err = s.personalStats(db, actor.ID); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// entityCounts counts records; a non-zero owner restricts customers to that salesperson
func (s *ReportService) entityCounts(db *gorm.DB, owner uint) (*EntityCounts, error) {
	counts := &EntityCounts{}
	customers := db.Model(&models.Customer{})
	if owner != 0 {
		customers = customers.Where("user_id = ?", owner)
	}
	if err := customers.Count(&counts.Customers).Error; err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	if owner != 0 {
		return counts, nil
	}
	if err := db.Model(&models.User{}).Count(&counts.Users).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.Product{}).Count(&counts.Products).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	return counts, nil
}

func (s *ReportService) orderStats(db *gorm.DB, owner uint) (*OrderStats, error) {
	type row struct {
		Status models.OrderStatus
		Count  int64
	}
	var rows []row
	query := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status")
	if owner != 0 {
		query = query.Where("created_by_id = ?", owner)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	stats := &OrderStats{}
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case models.OrderStatusPending:
			stats.Pending = r.Count
		case models.OrderStatusConfirmed:
			stats.Confirmed = r.Count
		case models.OrderStatusShipped:
			stats.Shipped = r.Count
		case models.OrderStatusCancelled:
			stats.Cancelled = r.Count
		}
	}
	return stats, nil
}

func (s *ReportService) revenue(db *gorm.DB, owner uint) (*decimal.Decimal, error) {
	query := db
	if owner != 0 {
		query = query.Where("created_by_id = ?", owner)
	}
	orders, err := s.soldOrders(query)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, order := range orders {
		t, _ := orderTotal(order)
		total = total.Add(t)
	}
	return &total, nil
}

func (s *ReportService) payroll(db *gorm.DB) (*decimal.Decimal, error) {
	var salaries []decimal.Decimal
	if err := db.Model(&models.User{}).Pluck("salary", &salaries).Error; err != nil {
		return nil, fmt.Errorf("load salaries: %w", err)
	}
	total := decimal.Sum(decimal.Zero, salaries...)
	return &total, nil
}

func (s *ReportService) peopleStats(db *gorm.DB) (*PeopleStats, error) {
	stats := &PeopleStats{}
	today := s.now().UTC().Format(models.AttendanceDateLayout)

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.Employees, db.Model(&models.User{}).Where("role <> ?", models.RoleSuperAdmin)},
		{&stats.Active, db.Model(&models.User{}).Where("role <> ? AND status = ?", models.RoleSuperAdmin, models.UserStatusActive)},
		{&stats.Suspended, db.Model(&models.User{}).Where("status = ?", models.UserStatusSuspended)},
		{&stats.TodayAttendance, db.Model(&models.Attendance{}).Where("date = ?", today)},
		{&stats.PendingLeaves, db.Model(&models.Leave{}).Where("status = ?", models.LeaveStatusPending)},
		{&stats.ApprovedLeaves, db.Model(&models.Leave{}).Where("status = ?", models.LeaveStatusApproved)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("people stats: %w", err)
		}
	}
	return stats, nil
}

func (s *ReportService) stockStats(db *gorm.DB) (*StockStats, error) {
	stats := &StockStats{LowStock: []LowStockProduct{}}
	if err := db.Model(&models.Product{}).Count(&stats.Products).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if err := db.Model(&models.Product{}).Select("COALESCE(SUM(quantity), 0)").Scan(&stats.TotalUnits).Error; err != nil {
		return nil, fmt.Errorf("sum stock: %w", err)
	}
	if err := db.Model(&models.Product{}).Where("quantity = 0").Count(&stats.OutOfStock).Error; err != nil {
		return nil, fmt.Errorf("count out of stock: %w", err)
	}

	var low []models.Product
	if err := db.Where("quantity <= ?", LowStockThreshold).Order("quantity ASC, id ASC").Limit(20).Find(&low).Error; err != nil {
		return nil, fmt.Errorf("load low stock: %w", err)
	}
	for _, p := range low {
		stats.LowStock = append(stats.LowStock, LowStockProduct{ID: p.ID, Title: p.Title, Quantity: p.Quantity})
	}
	return stats, nil
}

func (s *ReportService) personalStats(db *gorm.DB, userID uint) (*PersonalStats, error) {
	now := s.now().UTC()
	today := now.Format(models.AttendanceDateLayout)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(models.AttendanceDateLayout)

	stats := &PersonalStats{}
	var todayCount int64
	if err := db.Model(&models.Attendance{}).Where("user_id = ? AND date = ?", userID, today).Count(&todayCount).Error; err != nil {
		return nil, fmt.Errorf("personal attendance: %w", err)
	}
	stats.CheckedInToday = todayCount > 0
	if err := db.Model(&models.Attendance{}).Where("user_id = ? AND date >= ?", userID, monthStart).Count(&stats.AttendanceThisMonth).Error; err != nil {
		return nil, fmt.Errorf("personal attendance: %w", err)
	}
	if err := db.Model(&models.Leave{}).Where("user_id = ? AND status = ?", userID, models.LeaveStatusPending).Count(&stats.PendingLeaves).Error; err != nil {
		return nil, fmt.Errorf("personal leaves: %w", err)
	}
	if err := db.Model(&models.Leave{}).Where("user_id = ? AND status = ?", userID, models.LeaveStatusApproved).Count(&stats.ApprovedLeaves).Error; err != nil {
		return nil, fmt.Errorf("personal leaves: %w", err)
	}
	return stats, nil
}

// soldOrders loads confirmed and shipped orders matching query with line products,
// including products deleted since the sale.
func (s *ReportService) soldOrders(query *gorm.DB) ([]models.Order, error) {
	var orders []models.Order
	err := query.
		Preload("Lines.Product", unscoped).
		Where("status IN ?", revenueStatuses).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load sold orders: %w", err)
	}
	return orders, nil
}

// orderTotal returns Σ quantity × price and the number of units of an order
func orderTotal(order models.Order) (decimal.Decimal, int) {
	total := decimal.Zero
	items := 0
	for _, line := range order.Lines {
		items += line.Quantity
		if line.Product == nil {
			continue
		}
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, items
}

func cached[T any](ctx context.Context, s *ReportService, key string, build func() (*T, error)) (*T, error) {
	if s.cache != nil {
		var hit T
		ok, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			s.log.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return &hit, nil
		}
	}

	value, err := build()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value); err != nil {
			s.log.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}
