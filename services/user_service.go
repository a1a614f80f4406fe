package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProfileUpdate changes the caller's own profile
type ProfileUpdate struct {
	FullName *string `json:"full_name" binding:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
}

// UserUpdate is an administrative change to another user
type UserUpdate struct {
	Role   *models.Role     `json:"role"`
	Status *string          `json:"status"`
	Salary *decimal.Decimal `json:"salary"`
}

// UserFilter narrows List
type UserFilter struct {
	Role   string
	Status string
}

// UserService provisions staff accounts from Auth0 and manages their roles
type UserService struct {
	db       *gorm.DB
	policy   *Policy
	userInfo UserInfoProvider
	log      *zap.Logger
}

// NewUserService creates a user service
func NewUserService(db *gorm.DB, policy *Policy, userInfo UserInfoProvider, log *zap.Logger) *UserService {
	return &UserService{db: db, policy: policy, userInfo: userInfo, log: log}
}

// Provision creates the local account for an authenticated Auth0 identity.
// The role comes from the token's role claim and defaults to employee.
func (s *UserService) Provision(ctx context.Context, auth0ID, accessToken, roleClaim string) (*models.User, error) {
	if auth0ID == "" {
		return nil, invalid("token has no subject")
	}

	role := models.RoleEmployee
	if roleClaim != "" {
		parsed, err := models.ParseRole(roleClaim)
		if err != nil {
			return nil, invalid("invalid role claim %q", roleClaim)
		}
		role = parsed
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Unscoped().Model(&models.User{}).Where("auth0_id = ?", auth0ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if count > 0 {
		return nil, conflict("user already exists")
	}

	info, err := s.userInfo.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	if info.Sub != "" && info.Sub != auth0ID {
		return nil, forbidden("user info subject does not match token subject")
	}
	if strings.TrimSpace(info.Email) == "" {
		return nil, invalid("email is required but not available from Auth0")
	}
	if strings.TrimSpace(info.Name) == "" {
		return nil, invalid("name is required but not available from Auth0")
	}

	user := &models.User{
		Auth0ID:  auth0ID,
		FullName: strings.TrimSpace(info.Name),
		Email:    strings.ToLower(strings.TrimSpace(info.Email)),
		Phone:    info.PhoneNumber,
		Status:   models.UserStatusActive,
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("user already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user provisioned", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// GetByAuth0ID returns the account bound to an Auth0 subject
func (s *UserService) GetByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the caller's own name and phone
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := s.load(db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if name == "" {
			return nil, invalid("full name must not be empty")
		}
		updates["full_name"] = name
	}
	if update.Phone != nil {
		updates["phone"] = *update.Phone
	}

	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.load(db, userID)
}

// List returns users ordered by id
func (s *UserService) List(ctx context.Context, filter UserFilter, actor Actor) ([]models.User, error) {
	if err := s.policy.Authorize(ActionManageUsers, actor.Role); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Order("id ASC")
	if filter.Role != "" {
		role, err := models.ParseRole(filter.Role)
		if err != nil {
			return nil, invalid("invalid role filter %q", filter.Role)
		}
		query = query.Where("role = ?", role)
	}
	if filter.Status != "" {
		if !validUserStatus(filter.Status) {
			return nil, invalid("invalid status filter %q", filter.Status)
		}
		query = query.Where("status = ?", filter.Status)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id uint, actor Actor) (*models.User, error) {
	if err := s.policy.Authorize(ActionManageUsers, actor.Role); err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

// Update changes role, status or salary. Only superadmin may grant or touch superadmin accounts.
func (s *UserService) Update(ctx context.Context, id uint, update UserUpdate, actor Actor) (*models.User, error) {
	if err := s.policy.Authorize(ActionManageUsers, actor.Role); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperAdmin && user.Role == models.RoleSuperAdmin {
		return nil, forbidden("only superadmin may modify a superadmin account")
	}

	updates := map[string]interface{}{}
	if update.Role != nil {
		if !update.Role.Valid() {
			return nil, invalid("invalid role %q", *update.Role)
		}
		if *update.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
			return nil, forbidden("only superadmin may grant the superadmin role")
		}
		updates["role"] = *update.Role
	}
	if update.Status != nil {
		if !validUserStatus(*update.Status) {
			return nil, invalid("invalid status %q", *update.Status)
		}
		if id == actor.ID && *update.Status != models.UserStatusActive {
			return nil, invalid("cannot suspend your own account")
		}
		updates["status"] = *update.Status
	}
	if update.Salary != nil {
		if update.Salary.IsNegative() {
			return nil, invalid("salary must not be negative")
		}
		updates["salary"] = *update.Salary
	}

	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		s.log.Info("user updated", zap.Uint("user_id", id), zap.Uint("actor_id", actor.ID), zap.Any("fields", keys(updates)))
	}
	return s.load(db, id)
}

func (s *UserService) load(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user with ID %d not found", id)
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

func validUserStatus(status string) bool {
	return status == models.UserStatusActive || status == models.UserStatusSuspended
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
