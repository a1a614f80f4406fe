package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/kendall-kelly/erp-orders-api/utils"
)

// ImageService stores product images and hands out URLs for them
type ImageService struct {
	store ObjectStore
	now   func() time.Time
}

// NewImageService creates an image service over store
func NewImageService(store ObjectStore) *ImageService {
	return &ImageService{store: store, now: time.Now}
}

// UploadProductImage validates fileHeader and stores it, returning the object key.
// Validation failures are returned as *utils.FileUploadError.
func (s *ImageService) UploadProductImage(ctx context.Context, productID uint, fileHeader *multipart.FileHeader) (string, error) {
	content, err := utils.ReadImageFile(fileHeader)
	if err != nil {
		return "", err
	}

	key := utils.ProductImageKey(productID, fileHeader.Filename, s.now())
	if err := s.store.PutObject(ctx, key, utils.ImageContentType, content); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// ImageURL returns a presigned URL for key, or "" for an empty key
func (s *ImageService) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage removes key; an empty key is a no-op
func (s *ImageService) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
