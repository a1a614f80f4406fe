package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/erp-orders-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttendanceFilter narrows ListAttendance. Dates are YYYY-MM-DD and inclusive.
type AttendanceFilter struct {
	From   string
	To     string
	UserID uint
}

// AttendanceEdit is an HR correction of an attendance record
type AttendanceEdit struct {
	CheckInTime  *time.Time `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	Note         *string    `json:"note"`
}

// AttendanceStats is one user's attendance over a period
type AttendanceStats struct {
	UserID         uint        `json:"user_id"`
	FullName       string      `json:"full_name"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	TotalDays      int64       `json:"total_days"`
	CheckedOutDays int64       `json:"checked_out_days"`
	IncompleteDays int64       `json:"incomplete_days"`
}

// AttendanceService records daily check-ins and check-outs
type AttendanceService struct {
	db     *gorm.DB
	policy *Policy
	log    *zap.Logger
	now    func() time.Time
}

// NewAttendanceService creates an attendance service
func NewAttendanceService(db *gorm.DB, policy *Policy, log *zap.Logger) *AttendanceService {
	return &AttendanceService{db: db, policy: policy, log: log, now: time.Now}
}

// CheckIn opens today's record for the actor. A second check-in on the same day is a conflict.
func (s *AttendanceService) CheckIn(ctx context.Context, note string, actor Actor) (*models.Attendance, error) {
	if err := s.policy.Authorize(ActionRecordAttendance, actor.Role); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := now.Format(models.AttendanceDateLayout)
	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.Attendance{}).Where("user_id = ? AND date = ?", actor.ID, today).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check attendance: %w", err)
	}
	if existing > 0 {
		return nil, conflict("already checked in on %s", today)
	}

	record := &models.Attendance{
		UserID:      actor.ID,
		Date:        today,
		CheckInTime: now,
		Note:        note,
	}
	if err := db.Create(record).Error; err != nil {
		// The unique (user_id, date) index catches a concurrent double check-in
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, conflict("already checked in on %s", today)
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	s.log.Info("checked in", zap.Uint("user_id", actor.ID), zap.String("date", today))
	return s.load(ctx, record.ID)
}

// CheckOut closes today's record for the actor
func (s *AttendanceService) CheckOut(ctx context.Context, note string, actor Actor) (*models.Attendance, error) {
	if err := s.policy.Authorize(ActionRecordAttendance, actor.Role); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := now.Format(models.AttendanceDateLayout)
	db := s.db.WithContext(ctx)

	var record models.Attendance
	if err := db.Where("user_id = ? AND date = ?", actor.ID, today).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("no check-in found for %s", today)
		}
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	if record.CheckOutTime != nil {
		return nil, conflict("already checked out on %s", today)
	}

	updates := map[string]interface{}{"check_out_time": now}
	if note != "" {
		updates["note"] = note
	}
	result := db.Model(&models.Attendance{}).
		Where("id = ? AND check_out_time IS NULL", record.ID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update attendance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, conflict("already checked out on %s", today)
	}

	s.log.Info("checked out", zap.Uint("user_id", actor.ID), zap.String("date", today))
	return s.load(ctx, record.ID)
}

// ListMine returns the actor's own records, newest first
func (s *AttendanceService) ListMine(ctx context.Context, actor Actor) ([]models.Attendance, error) {
	var records []models.Attendance
	err := s.db.WithContext(ctx).
		Preload("EditedBy").
		Where("user_id = ?", actor.ID).
		Order("date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListAll returns every record matching filter, newest first
func (s *AttendanceService) ListAll(ctx context.Context, filter AttendanceFilter, actor Actor) ([]models.Attendance, error) {
	if err := s.policy.Authorize(ActionViewAllAttendance, actor.Role); err != nil {
		return nil, err
	}

	query, err := withDateRange(s.db.WithContext(ctx).Preload("User").Preload("EditedBy"), filter)
	if err != nil {
		return nil, err
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var records []models.Attendance
	if err := query.Order("date DESC, check_in_time DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Edit corrects a record and stamps the editor
func (s *AttendanceService) Edit(ctx context.Context, id uint, edit AttendanceEdit, actor Actor) (*models.Attendance, error) {
	if err := s.policy.Authorize(ActionEditAttendance, actor.Role); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var record models.Attendance
	if err := db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("attendance record with ID %d not found", id)
		}
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	checkIn := record.CheckInTime
	if edit.CheckInTime != nil {
		checkIn = *edit.CheckInTime
	}
	checkOut := record.CheckOutTime
	if edit.CheckOutTime != nil {
		checkOut = edit.CheckOutTime
	}
	if checkOut != nil && !checkOut.After(checkIn) {
		return nil, invalid("check-out time must be after check-in time")
	}

	now := s.now().UTC()
	updates := map[string]interface{}{
		"edited_by_id": actor.ID,
		"edited_at":    now,
	}
	if edit.CheckInTime != nil {
		updates["check_in_time"] = edit.CheckInTime.UTC()
	}
	if edit.CheckOutTime != nil {
		updates["check_out_time"] = edit.CheckOutTime.UTC()
	}
	if edit.Note != nil {
		updates["note"] = *edit.Note
	}
	if err := db.Model(&record).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("edit attendance: %w", err)
	}

	s.log.Info("attendance edited", zap.Uint("attendance_id", id), zap.Uint("editor_id", actor.ID))
	return s.load(ctx, id)
}

// Remove deletes an attendance record
func (s *AttendanceService) Remove(ctx context.Context, id uint, actor Actor) error {
	if err := s.policy.Authorize(ActionDeleteAttendance, actor.Role); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&models.Attendance{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete attendance %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("attendance record with ID %d not found", id)
	}

	s.log.Info("attendance deleted", zap.Uint("attendance_id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

// Stats counts recorded and completed days per user over filter's date range
func (s *AttendanceService) Stats(ctx context.Context, filter AttendanceFilter, actor Actor) ([]AttendanceStats, error) {
	if err := s.policy.Authorize(ActionViewAllAttendance, actor.Role); err != nil {
		return nil, err
	}

	totals, err := attendanceTotals(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, err
	}

	stats := make([]AttendanceStats, 0, len(totals))
	for _, t := range totals {
		stats = append(stats, AttendanceStats{
			UserID:         t.user.ID,
			FullName:       t.user.FullName,
			Email:          t.user.Email,
			Role:           t.user.Role,
			TotalDays:      t.totalDays,
			CheckedOutDays: t.checkedOutDays,
			IncompleteDays: t.totalDays - t.checkedOutDays,
		})
	}
	return stats, nil
}

func (s *AttendanceService) load(ctx context.Context, id uint) (*models.Attendance, error) {
	var record models.Attendance
	if err := s.db.WithContext(ctx).Preload("User").Preload("EditedBy").First(&record, id).Error; err != nil {
		return nil, fmt.Errorf("load attendance %d: %w", id, err)
	}
	return &record, nil
}

// attendanceTotal is one user's attendance over a date range
type attendanceTotal struct {
	user           models.User
	totalDays      int64
	checkedOutDays int64
}

// attendanceTotals groups attendance rows by user, ordered by user id.
// Users deleted since are still reported.
func attendanceTotals(db *gorm.DB, filter AttendanceFilter) ([]attendanceTotal, error) {
	query, err := withDateRange(db.Model(&models.Attendance{}), filter)
	if err != nil {
		return nil, err
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var rows []struct {
		UserID         uint
		TotalDays      int64
		CheckedOutDays int64
	}
	err = query.
		Select("user_id, COUNT(*) AS total_days, COUNT(check_out_time) AS checked_out_days").
		Group("user_id").
		Order("user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate attendance: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	var users []models.User
	if err := db.Unscoped().Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load attendance users: %w", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	totals := make([]attendanceTotal, 0, len(rows))
	for _, r := range rows {
		user, ok := byID[r.UserID]
		if !ok {
			continue
		}
		totals = append(totals, attendanceTotal{user: user, totalDays: r.TotalDays, checkedOutDays: r.CheckedOutDays})
	}
	return totals, nil
}

func withDateRange(query *gorm.DB, filter AttendanceFilter) (*gorm.DB, error) {
	if filter.From != "" {
		if err := validDate(filter.From); err != nil {
			return nil, err
		}
		query = query.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		if err := validDate(filter.To); err != nil {
			return nil, err
		}
		query = query.Where("date <= ?", filter.To)
	}
	if filter.From != "" && filter.To != "" && filter.To < filter.From {
		return nil, invalid("end date is before start date")
	}
	return query, nil
}

func validDate(s string) error {
	if _, err := time.Parse(models.AttendanceDateLayout, s); err != nil {
		return invalid("date %q must be formatted YYYY-MM-DD", s)
	}
	return nil
}

// isUniqueViolation matches unique constraint errors from drivers that gorm
// does not translate without TranslateError.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
