package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/kendall-kelly/erp-orders-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomerInput describes a customer
type CustomerInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// CustomerPatch changes the given customer fields
type CustomerPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
}

// CustomerService manages customers. Sales users only see and edit the customers they own.
type CustomerService struct {
	db     *gorm.DB
	policy *Policy
	log    *zap.Logger
}

// NewCustomerService creates a customer service
func NewCustomerService(db *gorm.DB, policy *Policy, log *zap.Logger) *CustomerService {
	return &CustomerService{db: db, policy: policy, log: log}
}

// Create adds a customer owned by the actor
func (s *CustomerService) Create(ctx context.Context, input CustomerInput, actor Actor) (*models.Customer, error) {
	if err := s.policy.Authorize(ActionManageCustomers, actor.Role); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureEmailFree(db, email, 0); err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:   name,
		Email:  email,
		Phone:  input.Phone,
		UserID: actor.ID,
	}
	if err := db.Create(customer).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("customer with email %q already exists", email)
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.log.Info("customer created", zap.Uint("customer_id", customer.ID), zap.Uint("owner_id", actor.ID))
	return s.Get(ctx, customer.ID, actor)
}

// List returns customers ordered by name
func (s *CustomerService) List(ctx context.Context, actor Actor) ([]models.Customer, error) {
	if err := s.policy.Authorize(ActionManageCustomers, actor.Role); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("User", unscoped).Order("name ASC, id ASC")
	if actor.Role == models.RoleSales {
		query = query.Where("user_id = ?", actor.ID)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// Get returns one customer the actor may see
func (s *CustomerService) Get(ctx context.Context, id uint, actor Actor) (*models.Customer, error) {
	if err := s.policy.Authorize(ActionManageCustomers, actor.Role); err != nil {
		return nil, err
	}
	return s.loadOwned(s.db.WithContext(ctx).Preload("User", unscoped), id, actor)
}

// Update changes a customer the actor may see
func (s *CustomerService) Update(ctx context.Context, id uint, patch CustomerPatch, actor Actor) (*models.Customer, error) {
	if err := s.policy.Authorize(ActionManageCustomers, actor.Role); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	customer, err := s.loadOwned(db, id, actor)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		updates["name"] = name
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		if email != customer.Email {
			if err := s.ensureEmailFree(db, email, id); err != nil {
				return nil, err
			}
		}
		updates["email"] = email
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}

	if len(updates) > 0 {
		if err := db.Model(customer).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
	}
	return s.Get(ctx, id, actor)
}

// Delete soft deletes a customer. Existing orders keep referring to it.
func (s *CustomerService) Delete(ctx context.Context, id uint, actor Actor) error {
	if err := s.policy.Authorize(ActionDeleteCustomer, actor.Role); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&models.Customer{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("customer with ID %d not found", id)
	}

	s.log.Info("customer deleted", zap.Uint("customer_id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

func (s *CustomerService) loadOwned(db *gorm.DB, id uint, actor Actor) (*models.Customer, error) {
	var customer models.Customer
	if err := db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("customer with ID %d not found", id)
		}
		return nil, fmt.Errorf("load customer %d: %w", id, err)
	}
	if actor.Role == models.RoleSales && customer.UserID != actor.ID {
		return nil, forbidden("customer %d belongs to another salesperson", id)
	}
	return &customer, nil
}

func (s *CustomerService) ensureEmailFree(db *gorm.DB, email string, exceptID uint) error {
	var count int64
	if err := db.Unscoped().Model(&models.Customer{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error; err != nil {
		return fmt.Errorf("check customer email: %w", err)
	}
	if count > 0 {
		return conflict("customer with email %q already exists", email)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", invalid("%q is not a valid email address", raw)
	}
	return strings.ToLower(addr.Address), nil
}
