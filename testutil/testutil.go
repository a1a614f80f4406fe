package testutil

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a private in-memory sqlite database with every table migrated.
// The pool is limited to one connection so every goroutine sees the same
// database and concurrent writers serialize on it.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateUser inserts an active user with the given role
func CreateUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	n := seq.Add(1)
	user := &models.User{
		Auth0ID:  fmt.Sprintf("auth0|%s-%d", role, n),
		FullName: fmt.Sprintf("%s user %d", role, n),
		Email:    fmt.Sprintf("%s-%d@example.com", role, n),
		Salary:   decimal.NewFromInt(1000),
		Status:   models.UserStatusActive,
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateCustomer inserts a customer owned by the given salesperson
func CreateCustomer(t *testing.T, db *gorm.DB, ownerID uint) *models.Customer {
	t.Helper()

	n := seq.Add(1)
	customer := &models.Customer{
		Name:   fmt.Sprintf("Customer %d", n),
		Email:  fmt.Sprintf("customer-%d@example.com", n),
		Phone:  "555-0100",
		UserID: ownerID,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customer
}

// CreateProduct inserts a product with the given quantity-on-hand and price
func CreateProduct(t *testing.T, db *gorm.DB, title string, quantity int, price string, createdByID uint) *models.Product {
	t.Helper()

	product := &models.Product{
		Title:       title,
		Description: title + " description",
		Category:    "general",
		Price:       decimal.RequireFromString(price),
		Quantity:    quantity,
		CreatedByID: createdByID,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

// ProductQuantity reads the current quantity-on-hand of a product, deleted or not
func ProductQuantity(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()

	var product models.Product
	if err := db.Unscoped().First(&product, productID).Error; err != nil {
		t.Fatalf("Failed to load product %d: %v", productID, err)
	}
	return product.Quantity
}
