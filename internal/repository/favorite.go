package repository

import (
	"context"
	"fmt"

	"schoolboard/internal/models"

	"gorm.io/gorm"
)

// FavoriteRepository stores per-user post bookmarks.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, postID uint) (bool, error)
	IsFavorited(ctx context.Context, userID, postID uint) (bool, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository returns a FavoriteRepository backed by the favorites table.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Toggle flips the bookmark and reports whether the post is now favorited.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, postID uint) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Favorite{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove favorite: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			favorited = false
			return nil
		}
		if err := tx.Create(&models.Favorite{UserID: userID, PostID: postID}).Error; err != nil {
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		favorited = true
		return nil
	})
	return favorited, err
}

func (r *favoriteRepository) IsFavorited(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}
