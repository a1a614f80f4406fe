package controllers

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every controller mounted under /api/v1
type Handlers struct {
	Users      *UserController
	Customers  *CustomerController
	Products   *ProductController
	Orders     *OrderController
	Attendance *AttendanceController
	Leaves     *LeaveController
	Reports    *ReportController
}

// RegisterRoutes mounts the authenticated API. authenticate validates the
// bearer token; requireUser resolves the caller's local account.
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers, authenticate, requireUser gin.HandlerFunc) {
	// Provisioning runs before the caller has an account
	v1.POST("/users", authenticate, h.Users.CreateUser)

	api := v1.Group("", authenticate, requireUser)
	{
		api.GET("/users/me", h.Users.GetMyProfile)
		api.PUT("/users/me", h.Users.UpdateMyProfile)
		api.GET("/users", h.Users.ListUsers)
		api.GET("/users/:id", h.Users.GetUser)
		api.PATCH("/users/:id", h.Users.UpdateUser)

		api.POST("/customers", h.Customers.CreateCustomer)
		api.GET("/customers", h.Customers.ListCustomers)
		api.GET("/customers/:id", h.Customers.GetCustomer)
		api.PUT("/customers/:id", h.Customers.UpdateCustomer)
		api.DELETE("/customers/:id", h.Customers.DeleteCustomer)

		api.POST("/products", h.Products.CreateProduct)
		api.GET("/products", h.Products.ListProducts)
		api.GET("/products/:id", h.Products.GetProduct)
		api.PUT("/products/:id", h.Products.UpdateProduct)
		api.DELETE("/products/:id", h.Products.DeleteProduct)
		api.PATCH("/products/:id/stock", h.Products.AdjustStock)
		api.POST("/products/:id/image", h.Products.UploadProductImage)

		api.POST("/orders", h.Orders.CreateOrder)
		api.GET("/orders", h.Orders.ListOrders)
		api.GET("/orders/:id", h.Orders.GetOrder)
		api.PUT("/orders/:id", h.Orders.UpdateOrder)
		api.DELETE("/orders/:id", h.Orders.DeleteOrder)
		api.PATCH("/orders/:id/confirm", h.Orders.ConfirmOrder)
		api.PATCH("/orders/:id/ship", h.Orders.ShipOrder)
		api.PATCH("/orders/:id/cancel", h.Orders.CancelOrder)
		api.GET("/orders/:id/events", h.Orders.ListOrderEvents)

		api.POST("/attendance/check-in", h.Attendance.CheckIn)
		api.POST("/attendance/check-out", h.Attendance.CheckOut)
		api.GET("/attendance/me", h.Attendance.ListMyAttendance)
		api.GET("/attendance", h.Attendance.ListAttendance)
		api.GET("/attendance/stats", h.Attendance.AttendanceStats)
		api.PUT("/attendance/:id", h.Attendance.EditAttendance)
		api.DELETE("/attendance/:id", h.Attendance.DeleteAttendance)

		api.POST("/leaves", h.Leaves.RequestLeave)
		api.GET("/leaves", h.Leaves.ListLeaves)
		api.GET("/leaves/me", h.Leaves.ListMyLeaves)
		api.GET("/leaves/stats", h.Leaves.LeaveStats)
		api.PUT("/leaves/:id", h.Leaves.UpdateLeave)
		api.PATCH("/leaves/:id/review", h.Leaves.ReviewLeave)
		api.DELETE("/leaves/:id", h.Leaves.WithdrawLeave)

		api.GET("/dashboard", h.Reports.Dashboard)
		api.GET("/finance/revenue", h.Reports.TotalRevenue)
		api.GET("/finance/revenue/monthly", h.Reports.MonthlyRevenue)
		api.GET("/finance/orders", h.Reports.OrdersReport)
		api.GET("/finance/salaries", h.Reports.SalariesReport)
		api.GET("/finance/sales-performance", h.Reports.SalesPerformance)
		api.GET("/finance/profit", h.Reports.ProfitReport)
		api.GET("/finance/attendance-costs", h.Reports.AttendanceCosts)
	}
}
