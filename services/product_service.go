package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductInput describes a new product
type ProductInput struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" binding:"min=0"`
}

// ProductPatch changes the given product fields. Quantity changes go through AdjustStock.
type ProductPatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
}

// ProductFilter narrows List
type ProductFilter struct {
	Category string
	Search   string
}

// ProductService manages the product catalogue. Stock levels are owned by the StockLedger.
type ProductService struct {
	db     *gorm.DB
	policy *Policy
	ledger *StockLedger
	images *ImageService
	log    *zap.Logger
}

// NewProductService creates a product service. images may be nil when no bucket is configured.
func NewProductService(db *gorm.DB, policy *Policy, images *ImageService, log *zap.Logger) *ProductService {
	return &ProductService{
		db:     db,
		policy: policy,
		ledger: NewStockLedger(db),
		images: images,
		log:    log,
	}
}

// Create adds a product. Titles are unique, including those of deleted products.
func (s *ProductService) Create(ctx context.Context, input ProductInput, actor Actor) (*models.Product, error) {
	if err := s.policy.Authorize(ActionCreateProduct, actor.Role); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if input.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	if input.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureTitleFree(db, title, 0); err != nil {
		return nil, err
	}

	product := &models.Product{
		Title:       title,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Quantity:    input.Quantity,
		CreatedByID: actor.ID,
	}
	if err := db.Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("product with title %q already exists", title)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.log.Info("product created", zap.Uint("product_id", product.ID), zap.String("title", title), zap.Int("quantity", product.Quantity))
	return s.Get(ctx, product.ID, actor)
}

// List returns products ordered by title
func (s *ProductService) List(ctx context.Context, filter ProductFilter, actor Actor) ([]models.Product, error) {
	if err := s.policy.Authorize(ActionViewProducts, actor.Role); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("CreatedBy", unscoped).Order("title ASC")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		s.attachImageURL(ctx, &products[i])
	}
	return products, nil
}

// Get returns one product with a presigned image URL
func (s *ProductService) Get(ctx context.Context, id uint, actor Actor) (*models.Product, error) {
	if err := s.policy.Authorize(ActionViewProducts, actor.Role); err != nil {
		return nil, err
	}

	product, err := s.load(s.db.WithContext(ctx).Preload("CreatedBy", unscoped), id)
	if err != nil {
		return nil, err
	}
	s.attachImageURL(ctx, product)
	return product, nil
}

// Update changes descriptive fields of a product
func (s *ProductService) Update(ctx context.Context, id uint, patch ProductPatch, actor Actor) (*models.Product, error) {
	if err := s.policy.Authorize(ActionUpdateProduct, actor.Role); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	product, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		if title != product.Title {
			if err := s.ensureTitleFree(db, title, id); err != nil {
				return nil, err
			}
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, invalid("price must not be negative")
		}
		updates["price"] = *patch.Price
	}

	if len(updates) > 0 {
		if err := db.Model(product).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, conflict("product with title %q already exists", updates["title"])
			}
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	return s.Get(ctx, id, actor)
}

// Delete soft deletes a product. Orders that reference it keep their lines.
func (s *ProductService) Delete(ctx context.Context, id uint, actor Actor) error {
	if err := s.policy.Authorize(ActionDeleteProduct, actor.Role); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("product with ID %d not found", id)
	}

	s.log.Info("product deleted", zap.Uint("product_id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

// AdjustStock adds delta to the quantity-on-hand
func (s *ProductService) AdjustStock(ctx context.Context, id uint, delta int, actor Actor) (*models.Product, error) {
	if err := s.policy.Authorize(ActionAdjustStock, actor.Role); err != nil {
		return nil, err
	}

	product, err := s.ledger.Adjust(ctx, id, delta)
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjusted",
		zap.Uint("product_id", id),
		zap.Int("delta", delta),
		zap.Int("quantity", product.Quantity),
		zap.Uint("actor_id", actor.ID),
	)
	s.attachImageURL(ctx, product)
	return product, nil
}

// UploadImage stores a PNG for the product and replaces any previous image
func (s *ProductService) UploadImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader, actor Actor) (*models.Product, error) {
	if err := s.policy.Authorize(ActionUpdateProduct, actor.Role); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, invalid("image upload is disabled")
	}

	db := s.db.WithContext(ctx)
	product, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadProductImage(ctx, id, fileHeader)
	if err != nil {
		var fileErr *utils.FileUploadError
		if errors.As(err, &fileErr) {
			return nil, &ServiceError{Kind: KindValidation, Message: fileErr.Message, Err: fileErr}
		}
		return nil, err
	}

	var previous string
	if product.ImageS3Key != nil {
		previous = *product.ImageS3Key
	}
	if err := db.Model(&models.Product{}).Where("id = ?", id).Update("image_s3_key", key).Error; err != nil {
		return nil, fmt.Errorf("save image key: %w", err)
	}
	if previous != "" && previous != key {
		if err := s.images.DeleteImage(ctx, previous); err != nil {
			s.log.Warn("failed to delete previous product image", zap.Uint("product_id", id), zap.Error(err))
		}
	}

	s.log.Info("product image uploaded", zap.Uint("product_id", id), zap.String("key", key))
	return s.Get(ctx, id, actor)
}

func (s *ProductService) ensureTitleFree(db *gorm.DB, title string, exceptID uint) error {
	var count int64
	if err := db.Unscoped().Model(&models.Product{}).Where("title = ? AND id <> ?", title, exceptID).Count(&count).Error; err != nil {
		return fmt.Errorf("check product title: %w", err)
	}
	if count > 0 {
		return conflict("product with title %q already exists", title)
	}
	return nil
}

func (s *ProductService) load(db *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product with ID %d not found", id)
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &product, nil
}

func (s *ProductService) attachImageURL(ctx context.Context, product *models.Product) {
	if s.images == nil || product.ImageS3Key == nil || *product.ImageS3Key == "" {
		return
	}
	url, err := s.images.ImageURL(ctx, *product.ImageS3Key)
	if err != nil {
		s.log.Warn("failed to presign product image", zap.Uint("product_id", product.ID), zap.Error(err))
		return
	}
	product.ImageURL = &url
}
