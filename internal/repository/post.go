package repository

import (
	"context"
	"fmt"
	"strings"

	"schoolboard/internal/models"
	"schoolboard/internal/observability"

	"gorm.io/gorm"
)

// BestPostLimit is how many posts carry the best flag at once.
const BestPostLimit = 3

// PostListItem is a post row annotated with the viewer's reaction.
type PostListItem struct {
	models.Post
	MyReaction *string `json:"myReaction"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, query string, viewerID uint) ([]PostListItem, error)
	ListBest(ctx context.Context) ([]models.Post, error)
	Delete(ctx context.Context, id uint) error
	RecomputeBest(ctx context.Context) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("get_by_id", "posts")()

	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// List returns every post, best first then newest. A non-empty query filters
// title and content case-insensitively. viewerID 0 leaves MyReaction nil.
func (r *postRepository) List(ctx context.Context, query string, viewerID uint) ([]PostListItem, error) {
	defer observability.TrackQuery("list", "posts")()

	tx := r.db.WithContext(ctx).Table("posts")
	if viewerID != 0 {
		tx = tx.Select("posts.*, r.reaction AS my_reaction").
			Joins("LEFT JOIN post_reactions r ON r.post_id = posts.id AND r.user_id = ?", viewerID)
	} else {
		tx = tx.Select("posts.*, NULL AS my_reaction")
	}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		like := "%" + q + "%"
		tx = tx.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ?", like, like)
	}

	items := make([]PostListItem, 0)
	if err := tx.Order("posts.is_best DESC, posts.created_at DESC, posts.id DESC").Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if items == nil {
		items = []PostListItem{}
	}
	return items, nil
}

func (r *postRepository) ListBest(ctx context.Context) ([]models.Post, error) {
	defer observability.TrackQuery("list_best", "posts")()

	posts := make([]models.Post, 0, BestPostLimit)
	err := r.db.WithContext(ctx).
		Where("is_best = ?", true).
		Order("(likes - dislikes) DESC, likes DESC, created_at DESC, id DESC").
		Limit(BestPostLimit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list best posts: %w", err)
	}
	return posts, nil
}

// Delete removes the post with its comments, reactions, favorites and image
// rows in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostReaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete reactions: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to delete favorites: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete post: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

// RecomputeBest clears every best flag and sets it on the top posts by likes,
// newest first on ties.
func (r *postRepository) RecomputeBest(ctx context.Context) error {
	defer observability.TrackQuery("recompute_best", "posts")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Model(&models.Post{}).
			Update("is_best", false).Error; err != nil {
			return fmt.Errorf("failed to clear best flags: %w", err)
		}

		var ids []uint
		if err := tx.Model(&models.Post{}).
			Order("likes DESC, created_at DESC, id DESC").
			Limit(BestPostLimit).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to rank posts: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(&models.Post{}).Where("id IN ?", ids).Update("is_best", true).Error; err != nil {
			return fmt.Errorf("failed to set best flags: %w", err)
		}
		return nil
	})
}
