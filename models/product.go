package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stocked item. Quantity is the quantity-on-hand and never goes negative.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"uniqueIndex;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Quantity    int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	ImageS3Key  *string         `json:"image_s3_key"`                 // nullable, S3 key for uploaded image
	ImageURL    *string         `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	CreatedByID uint            `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
