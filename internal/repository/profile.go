package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ActivityCounts summarizes a user's board activity.
type ActivityCounts struct {
	Posts     int64 `json:"posts"`
	Comments  int64 `json:"comments"`
	Favorites int64 `json:"favorites"`
}

// ActivityItem is one row of the profile lists.
type ActivityItem struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	Likes        int    `json:"likes"`
	CommentCount int    `json:"commentCount"`
	Snippet      string `json:"snippet"`
}

// ProfileRepository reads a user's own posts, comments and favorites.
// Posts and comments are matched by student id, favorites by user id.
type ProfileRepository interface {
	Counts(ctx context.Context, studentID string, userID uint) (ActivityCounts, error)
	ListPosts(ctx context.Context, studentID string, limit, offset int) ([]ActivityItem, int64, error)
	ListComments(ctx context.Context, studentID string, limit, offset int) ([]ActivityItem, int64, error)
	ListFavorites(ctx context.Context, userID uint, limit, offset int) ([]ActivityItem, int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a ProfileRepository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Counts(ctx context.Context, studentID string, userID uint) (ActivityCounts, error) {
	var out ActivityCounts
	db := r.db.WithContext(ctx)
	if err := db.Table("posts").Where("student_id = ?", studentID).Count(&out.Posts).Error; err != nil {
		return out, fmt.Errorf("failed to count posts: %w", err)
	}
	if err := db.Table("comments").Where("student_id = ?", studentID).Count(&out.Comments).Error; err != nil {
		return out, fmt.Errorf("failed to count comments: %w", err)
	}
	if err := db.Table("favorites").Where("user_id = ?", userID).Count(&out.Favorites).Error; err != nil {
		return out, fmt.Errorf("failed to count favorites: %w", err)
	}
	return out, nil
}

func (r *profileRepository) ListPosts(ctx context.Context, studentID string, limit, offset int) ([]ActivityItem, int64, error) {
	base := r.db.WithContext(ctx).Table("posts p").Where("p.student_id = ?", studentID)
	return page(base,
		"p.id, p.title, p.tag AS category, p.likes, p.comments AS comment_count, SUBSTR(p.content, 1, 120) AS snippet",
		"p.created_at DESC, p.id DESC", limit, offset)
}

func (r *profileRepository) ListComments(ctx context.Context, studentID string, limit, offset int) ([]ActivityItem, int64, error) {
	base := r.db.WithContext(ctx).Table("comments c").
		Joins("JOIN posts p ON p.id = c.post_id").
		Where("c.student_id = ?", studentID)
	items, total, err := page(base,
		"p.id, p.title, p.tag AS category, p.likes, p.comments AS comment_count, c.text AS snippet",
		"c.created_at DESC, c.id DESC", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Title = "[댓글] " + items[i].Title
	}
	return items, total, nil
}

func (r *profileRepository) ListFavorites(ctx context.Context, userID uint, limit, offset int) ([]ActivityItem, int64, error) {
	base := r.db.WithContext(ctx).Table("favorites f").
		Joins("JOIN posts p ON p.id = f.post_id").
		Where("f.user_id = ?", userID)
	return page(base,
		"p.id, p.title, p.tag AS category, p.likes, p.comments AS comment_count, SUBSTR(p.content, 1, 120) AS snippet",
		"f.created_at DESC, f.id DESC", limit, offset)
}

func page(base *gorm.DB, columns, order string, limit, offset int) ([]ActivityItem, int64, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}
	items := make([]ActivityItem, 0, limit)
	if err := base.Session(&gorm.Session{}).
		Select(columns).
		Order(order).
		Limit(limit).
		Offset(offset).
		Scan(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	return items, total, nil
}
