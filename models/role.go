package models

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of ERP user roles
type Role string

const (
	RoleSuperAdmin   Role = "superadmin"
	RoleHR           Role = "hr"
	RoleSalesManager Role = "salesManager"
	RoleSales        Role = "sales"
	RoleInventory    Role = "inventory"
	RoleFinance      Role = "finance"
	RoleEmployee     Role = "employee"
)

// AllRoles lists every valid role
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleHR,
	RoleSalesManager,
	RoleSales,
	RoleInventory,
	RoleFinance,
	RoleEmployee,
}

// ParseRole converts a raw role string into a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// UnmarshalJSON rejects role strings outside the closed set
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
