package models

import (
	"time"
)

// Leave request statuses
const (
	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"
)

// Leave is a leave request reviewed by HR
type Leave struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      time.Time  `gorm:"not null" json:"end_date"`
	Reason       string     `gorm:"type:text;not null" json:"reason"`
	Status       string     `gorm:"not null;default:'pending';index" json:"status"`
	TotalDays    int        `gorm:"not null" json:"total_days"`
	ReviewedByID *uint      `json:"reviewed_by_id"`
	ReviewedBy   *User      `gorm:"foreignKey:ReviewedByID" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	ReviewNote   string     `json:"review_note"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Leave model
func (Leave) TableName() string {
	return "leaves"
}
