package repository

import (
	"context"
	"fmt"

	"schoolboard/internal/models"

	"gorm.io/gorm"
)

// ImageRepository stores metadata for images attached to posts.
type ImageRepository interface {
	Create(ctx context.Context, image *models.PostImage) error
	ListByPost(ctx context.Context, postID uint) ([]models.PostImage, error)
	NextSortOrder(ctx context.Context, postID uint) (int, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a repository implementation for image metadata.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.PostImage) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("failed to save image metadata: %w", err)
	}
	return nil
}

func (r *imageRepository) ListByPost(ctx context.Context, postID uint) ([]models.PostImage, error) {
	images := make([]models.PostImage, 0)
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("sort_order ASC, id ASC").
		Find(&images).Error
	return images, err
}

func (r *imageRepository) NextSortOrder(ctx context.Context, postID uint) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.PostImage{}).
		Where("post_id = ?", postID).
		Select("MAX(sort_order)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}
