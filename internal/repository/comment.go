package repository

import (
	"context"
	"fmt"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/observability"

	"gorm.io/gorm"
)

// padID renders a comment id as 10 zero-padded digits; valid on SQLite and PostgreSQL.
const padID = "SUBSTR('0000000000' || CAST(%[1]s AS TEXT), LENGTH(CAST(%[1]s AS TEXT)) + 1)"

var commentTreeSQL = fmt.Sprintf(`
WITH RECURSIVE tree(id, depth, path) AS (
	SELECT c.id, 0, %s
	FROM comments c
	WHERE c.post_id = ? AND c.parent_id IS NULL
	UNION ALL
	SELECT c.id, t.depth + 1, t.path || %s
	FROM comments c
	JOIN tree t ON c.parent_id = t.id
)
SELECT c.*, tree.depth AS depth, tree.path AS path
FROM tree
JOIN comments c ON c.id = tree.id
ORDER BY tree.path, c.id`, fmt.Sprintf(padID, "c.id"), fmt.Sprintf(padID, "c.id"))

const commentSubtreeSQL = `
WITH RECURSIVE sub(id) AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN sub ON c.parent_id = sub.id
)
SELECT id FROM sub`

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListTree(ctx context.Context, postID uint) ([]models.CommentNode, error)
	UpdateText(ctx context.Context, id uint, text string) (*models.Comment, error)
	Delete(ctx context.Context, comment *models.Comment) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and recounts the post's comment counter in one
// transaction.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return recountComments(tx, comment.PostID)
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

// ListTree returns the post's comments in thread order: every comment follows
// its parent, siblings ascend by id, and Depth counts ancestors.
func (r *commentRepository) ListTree(ctx context.Context, postID uint) ([]models.CommentNode, error) {
	defer observability.TrackQuery("list_tree", "comments")()

	nodes := make([]models.CommentNode, 0)
	if err := r.db.WithContext(ctx).Raw(commentTreeSQL, postID).Scan(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to load comment tree: %w", err)
	}
	if nodes == nil {
		nodes = []models.CommentNode{}
	}
	return nodes, nil
}

func (r *commentRepository) UpdateText(ctx context.Context, id uint, text string) (*models.Comment, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"text": text, "updated_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the comment and all of its descendants, then recounts the
// post's comment counter. It returns the number of rows removed.
func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) (int64, error) {
	defer observability.TrackQuery("delete", "comments")()

	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Raw(commentSubtreeSQL, comment.ID).Scan(&ids).Error; err != nil {
			return fmt.Errorf("failed to collect comment subtree: %w", err)
		}
		if len(ids) == 0 {
			return models.NewNotFoundError("Comment", comment.ID)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		// SQLite leaves FK-cascaded rows out of RowsAffected; the subtree is the count.
		removed = int64(len(ids))
		return recountComments(tx, comment.PostID)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func recountComments(tx *gorm.DB, postID uint) error {
	var count int64
	if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count comments: %w", err)
	}
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Update("comments", count).Error; err != nil {
		return fmt.Errorf("failed to update comment counter: %w", err)
	}
	return nil
}
