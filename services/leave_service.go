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

// LeaveRequest is a new leave application. Dates are YYYY-MM-DD.
type LeaveRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// LeaveDecision approves or rejects a pending request
type LeaveDecision struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// LeaveUpdate changes a leave request. Nil fields are left alone; dates are YYYY-MM-DD.
type LeaveUpdate struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Reason    *string `json:"reason"`
}

// LeaveStatusCount totals one user's requests in one status
type LeaveStatusCount struct {
	Status    string `json:"status"`
	Count     int64  `json:"count"`
	TotalDays int64  `json:"total_days"`
}

// LeaveStats is one user's leave broken down by status
type LeaveStats struct {
	UserID   uint               `json:"user_id"`
	FullName string             `json:"full_name"`
	Email    string             `json:"email"`
	Role     models.Role        `json:"role"`
	Leaves   []LeaveStatusCount `json:"leaves"`
}

// LeaveFilter narrows ListAll and Stats. From and To are YYYY-MM-DD bounds on the start date.
type LeaveFilter struct {
	Status string
	UserID uint
	From   string
	To     string
}

// LeaveService manages leave requests and their review
type LeaveService struct {
	db     *gorm.DB
	policy *Policy
	log    *zap.Logger
	now    func() time.Time
}

// NewLeaveService creates a leave service
func NewLeaveService(db *gorm.DB, policy *Policy, log *zap.Logger) *LeaveService {
	return &LeaveService{db: db, policy: policy, log: log, now: time.Now}
}

// Request files a pending leave. The period must not start in the past and must
// not overlap another pending or approved leave of the same user.
func (s *LeaveService) Request(ctx context.Context, req LeaveRequest, actor Actor) (*models.Leave, error) {
	if err := s.policy.Authorize(ActionRequestLeave, actor.Role); err != nil {
		return nil, err
	}

	start, err := parseDay(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.validatePeriod(start, end, true); err != nil {
		return nil, err
	}
	if req.Reason == "" {
		return nil, invalid("reason is required")
	}

	leave := &models.Leave{
		UserID:    actor.ID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
		Status:    models.LeaveStatusPending,
		TotalDays: leaveDays(start, end),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNoOverlap(tx, actor.ID, 0, start, end); err != nil {
			return err
		}
		if err := tx.Create(leave).Error; err != nil {
			return fmt.Errorf("create leave: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("leave requested", zap.Uint("leave_id", leave.ID), zap.Uint("user_id", actor.ID), zap.Int("days", leave.TotalDays))
	return s.load(ctx, leave.ID)
}

// ListMine returns the actor's requests, newest first
func (s *LeaveService) ListMine(ctx context.Context, actor Actor) ([]models.Leave, error) {
	var leaves []models.Leave
	err := s.db.WithContext(ctx).
		Preload("ReviewedBy").
		Where("user_id = ?", actor.ID).
		Order("created_at DESC, id DESC").
		Find(&leaves).Error
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	return leaves, nil
}

// ListAll returns every request matching filter, newest first
func (s *LeaveService) ListAll(ctx context.Context, filter LeaveFilter, actor Actor) ([]models.Leave, error) {
	if err := s.policy.Authorize(ActionReviewLeave, actor.Role); err != nil {
		return nil, err
	}

	query, err := filterLeaves(s.db.WithContext(ctx).Preload("User").Preload("ReviewedBy"), filter)
	if err != nil {
		return nil, err
	}

	var leaves []models.Leave
	if err := query.Order("created_at DESC, id DESC").Find(&leaves).Error; err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	return leaves, nil
}

// Review approves or rejects a pending request
func (s *LeaveService) Review(ctx context.Context, id uint, decision LeaveDecision, actor Actor) (*models.Leave, error) {
	if err := s.policy.Authorize(ActionReviewLeave, actor.Role); err != nil {
		return nil, err
	}

	status := models.LeaveStatusRejected
	if decision.Approve {
		status = models.LeaveStatusApproved
	}

	db := s.db.WithContext(ctx)
	now := s.now().UTC()
	result := db.Model(&models.Leave{}).
		Where("id = ? AND status = ?", id, models.LeaveStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"reviewed_by_id": actor.ID,
			"reviewed_at":    now,
			"review_note":    decision.Note,
			"updated_at":     now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("review leave: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		leave, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition("leave request %d is already %s", id, leave.Status)
	}

	s.log.Info("leave reviewed", zap.Uint("leave_id", id), zap.String("status", status), zap.Uint("reviewer_id", actor.ID))
	return s.load(ctx, id)
}

// Update edits a request. Owners may edit only their own pending requests;
// reviewers may edit any request and may move its start into the past.
func (s *LeaveService) Update(ctx context.Context, id uint, update LeaveUpdate, actor Actor) (*models.Leave, error) {
	reviewer := s.policy.IsAllowed(ActionReviewLeave, actor.Role)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var leave models.Leave
		if err := tx.First(&leave, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("leave request with ID %d not found", id)
			}
			return fmt.Errorf("load leave %d: %w", id, err)
		}
		if !reviewer {
			if leave.UserID != actor.ID {
				return forbidden("leave request %d belongs to another user", id)
			}
			if leave.Status != models.LeaveStatusPending {
				return invalidTransition("leave request %d is %s and can no longer be edited", id, leave.Status)
			}
		}

		updates := map[string]interface{}{"updated_at": s.now().UTC()}
		if update.Reason != nil {
			if strings.TrimSpace(*update.Reason) == "" {
				return invalid("reason cannot be empty")
			}
			updates["reason"] = *update.Reason
		}
		if update.StartDate != nil || update.EndDate != nil {
			start, end := leave.StartDate, leave.EndDate
			var err error
			if update.StartDate != nil {
				if start, err = parseDay(*update.StartDate); err != nil {
					return err
				}
			}
			if update.EndDate != nil {
				if end, err = parseDay(*update.EndDate); err != nil {
					return err
				}
			}
			if err := s.validatePeriod(start, end, !reviewer); err != nil {
				return err
			}
			if err := ensureNoOverlap(tx, leave.UserID, leave.ID, start, end); err != nil {
				return err
			}
			updates["start_date"] = start
			updates["end_date"] = end
			updates["total_days"] = leaveDays(start, end)
		}

		query := tx.Model(&models.Leave{}).Where("id = ?", id)
		if !reviewer {
			query = query.Where("status = ?", models.LeaveStatusPending)
		}
		result := query.Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("update leave %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return invalidTransition("leave request %d was reviewed before the edit was applied", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("leave updated", zap.Uint("leave_id", id), zap.Uint("actor_id", actor.ID))
	return s.load(ctx, id)
}

// Stats counts requests and days per user and status, ordered by user id
func (s *LeaveService) Stats(ctx context.Context, filter LeaveFilter, actor Actor) ([]LeaveStats, error) {
	if err := s.policy.Authorize(ActionReviewLeave, actor.Role); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	query, err := filterLeaves(db.Model(&models.Leave{}), filter)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		UserID    uint
		Status    string
		Count     int64
		TotalDays int64
	}
	err = query.
		Select("user_id, status, COUNT(*) AS count, COALESCE(SUM(total_days), 0) AS total_days").
		Group("user_id, status").
		Order("user_id ASC, status ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate leaves: %w", err)
	}

	stats := make([]LeaveStats, 0)
	index := make(map[uint]int)
	var ids []uint
	for _, r := range rows {
		i, ok := index[r.UserID]
		if !ok {
			i = len(stats)
			index[r.UserID] = i
			ids = append(ids, r.UserID)
			stats = append(stats, LeaveStats{UserID: r.UserID})
		}
		stats[i].Leaves = append(stats[i].Leaves, LeaveStatusCount{Status: r.Status, Count: r.Count, TotalDays: r.TotalDays})
	}
	if len(stats) == 0 {
		return stats, nil
	}

	var users []models.User
	if err := db.Unscoped().Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load leave users: %w", err)
	}
	for _, u := range users {
		st := &stats[index[u.ID]]
		st.FullName, st.Email, st.Role = u.FullName, u.Email, u.Role
	}
	return stats, nil
}

// Withdraw deletes the actor's own pending request
func (s *LeaveService) Withdraw(ctx context.Context, id uint, actor Actor) error {
	leave, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if leave.UserID != actor.ID {
		return forbidden("leave request %d belongs to another user", id)
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.LeaveStatusPending).
		Delete(&models.Leave{})
	if result.Error != nil {
		return fmt.Errorf("withdraw leave: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return invalidTransition("leave request %d is %s and can no longer be withdrawn", id, leave.Status)
	}
	return nil
}

func (s *LeaveService) load(ctx context.Context, id uint) (*models.Leave, error) {
	var leave models.Leave
	if err := s.db.WithContext(ctx).Preload("User").Preload("ReviewedBy").First(&leave, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("leave request with ID %d not found", id)
		}
		return nil, fmt.Errorf("load leave %d: %w", id, err)
	}
	return &leave, nil
}

// validatePeriod requires end after start. With notInPast the start may not be before today.
func (s *LeaveService) validatePeriod(start, end time.Time, notInPast bool) error {
	if !end.After(start) {
		return invalid("end date must be after start date")
	}
	if notInPast {
		now := s.now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if start.Before(today) {
			return invalid("start date cannot be in the past")
		}
	}
	return nil
}

// ensureNoOverlap rejects a period that intersects another pending or approved
// leave of the same user. exceptID excludes the request being edited.
func ensureNoOverlap(tx *gorm.DB, userID, exceptID uint, start, end time.Time) error {
	var overlapping int64
	err := tx.Model(&models.Leave{}).
		Where("user_id = ? AND id <> ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			userID, exceptID, []string{models.LeaveStatusPending, models.LeaveStatusApproved}, end, start).
		Count(&overlapping).Error
	if err != nil {
		return fmt.Errorf("check overlapping leave: %w", err)
	}
	if overlapping > 0 {
		return conflict("a leave request already covers part of %s to %s",
			start.Format(models.AttendanceDateLayout), end.Format(models.AttendanceDateLayout))
	}
	return nil
}

func filterLeaves(query *gorm.DB, filter LeaveFilter) (*gorm.DB, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.LeaveStatusPending, models.LeaveStatusApproved, models.LeaveStatusRejected:
		default:
			return nil, invalid("unknown leave status %q", filter.Status)
		}
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.From != "" {
		from, err := parseDay(filter.From)
		if err != nil {
			return nil, err
		}
		query = query.Where("start_date >= ?", from)
	}
	if filter.To != "" {
		to, err := parseDay(filter.To)
		if err != nil {
			return nil, err
		}
		query = query.Where("start_date <= ?", to)
	}
	return query, nil
}

func leaveDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(models.AttendanceDateLayout, s)
	if err != nil {
		return time.Time{}, invalid("date %q must be formatted YYYY-MM-DD", s)
	}
	return t, nil
}
