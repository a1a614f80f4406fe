package models

import (
	"time"
)

// AttendanceDateLayout is the format of Attendance.Date
const AttendanceDateLayout = "2006-01-02"

// Attendance is one check-in/check-out record per user per day
type Attendance struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_attendance_user_date" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Date         string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_attendance_user_date" json:"date"`
	CheckInTime  time.Time  `gorm:"not null" json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	Note         string     `json:"note"`
	EditedByID   *uint      `json:"edited_by_id"`
	EditedBy     *User      `gorm:"foreignKey:EditedByID" json:"edited_by,omitempty"`
	EditedAt     *time.Time `json:"edited_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Attendance model
func (Attendance) TableName() string {
	return "attendance"
}
