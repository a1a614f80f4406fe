package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User statuses
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// User represents an ERP staff member
type User struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Auth0ID   string          `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	FullName  string          `gorm:"not null" json:"full_name"`
	Email     string          `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string          `json:"phone"`
	Salary    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"salary"`
	Status    string          `gorm:"not null;default:'active'" json:"status"`
	Role      Role            `gorm:"type:varchar(20);not null;default:'employee';index" json:"role"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
