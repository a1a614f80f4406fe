package services

import (
	"github.com/kendall-kelly/erp-orders-api/models"
)

// Action is something a role may or may not do
type Action string

const (
	ActionCreateOrder        Action = "create-order"
	ActionViewOwnOrders      Action = "view-own-orders"
	ActionViewAllOrders      Action = "view-all-orders"
	ActionUpdatePendingOrder Action = "update-pending-order"
	ActionConfirmOrder       Action = "confirm-order"
	ActionShipOrder          Action = "ship-order"
	ActionCancelOrder        Action = "cancel-order"
	ActionDeleteOrder        Action = "delete-order"
	ActionCreateProduct      Action = "create-product"
	ActionAdjustStock        Action = "adjust-stock"

	ActionViewProducts      Action = "view-products"
	ActionUpdateProduct     Action = "update-product"
	ActionDeleteProduct     Action = "delete-product"
	ActionManageCustomers   Action = "manage-customers"
	ActionDeleteCustomer    Action = "delete-customer"
	ActionManageUsers       Action = "manage-users"
	ActionRecordAttendance  Action = "record-attendance"
	ActionViewAllAttendance Action = "view-all-attendance"
	ActionEditAttendance    Action = "edit-attendance"
	ActionDeleteAttendance  Action = "delete-attendance"
	ActionRequestLeave      Action = "request-leave"
	ActionReviewLeave       Action = "review-leave"
	ActionViewFinance       Action = "view-finance"
	ActionViewDashboard     Action = "view-dashboard"
)

// PolicyTable maps each action to the roles allowed to perform it
type PolicyTable map[Action][]models.Role

// DefaultPolicyTable is the permission table loaded at process start
func DefaultPolicyTable() PolicyTable {
	var (
		superadmin   = models.RoleSuperAdmin
		hr           = models.RoleHR
		salesManager = models.RoleSalesManager
		sales        = models.RoleSales
		inventory    = models.RoleInventory
		finance      = models.RoleFinance
		employee     = models.RoleEmployee
	)
	staff := []models.Role{hr, salesManager, sales, inventory, finance, employee}

	return PolicyTable{
		ActionCreateOrder:        {sales, salesManager, superadmin},
		ActionViewOwnOrders:      {sales},
		ActionViewAllOrders:      {salesManager, superadmin, inventory},
		ActionUpdatePendingOrder: {sales, salesManager, superadmin},
		ActionConfirmOrder:       {salesManager, superadmin},
		ActionShipOrder:          {inventory, superadmin},
		ActionCancelOrder:        {salesManager, superadmin},
		ActionDeleteOrder:        {superadmin},
		ActionCreateProduct:      {inventory, superadmin},
		ActionAdjustStock:        {inventory, superadmin},

		ActionViewProducts:      {inventory, superadmin, sales, salesManager},
		ActionUpdateProduct:     {inventory, superadmin},
		ActionDeleteProduct:     {inventory, superadmin},
		ActionManageCustomers:   {sales, salesManager, superadmin},
		ActionDeleteCustomer:    {salesManager, superadmin},
		ActionManageUsers:       {hr, superadmin},
		ActionRecordAttendance:  staff,
		ActionViewAllAttendance: {hr, superadmin},
		ActionEditAttendance:    {hr, superadmin},
		ActionDeleteAttendance:  {superadmin},
		ActionRequestLeave:      staff,
		ActionReviewLeave:       {hr, superadmin},
		ActionViewFinance:       {finance, superadmin},
		ActionViewDashboard:     models.AllRoles,
	}
}

// Policy answers (action, role) questions from an immutable table
type Policy struct {
	allowed map[Action]map[models.Role]bool
}

// NewPolicy copies table into a lookup structure; later changes to table are not observed
func NewPolicy(table PolicyTable) *Policy {
	allowed := make(map[Action]map[models.Role]bool, len(table))
	for action, roles := range table {
		set := make(map[models.Role]bool, len(roles))
		for _, r := range roles {
			set[r] = true
		}
		allowed[action] = set
	}
	return &Policy{allowed: allowed}
}

// IsAllowed reports whether role may perform action. Unknown actions are denied.
func (p *Policy) IsAllowed(action Action, role models.Role) bool {
	return p.allowed[action][role]
}

// Authorize returns an authorization error when role may not perform action
func (p *Policy) Authorize(action Action, role models.Role) error {
	if !p.IsAllowed(action, role) {
		return forbidden("role %q is not allowed to %s", role, action)
	}
	return nil
}
