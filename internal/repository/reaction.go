package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionOutcome is the ledger state after a toggle. Previous and Current
// are "like", "dislike" or "" for no reaction.
type ReactionOutcome struct {
	Previous string
	Current  string
	Likes    int
	Dislikes int
}

// ReactionRepository owns the per-user reaction ledger and the counters it feeds.
type ReactionRepository interface {
	Toggle(ctx context.Context, userID, postID uint, desired string) (*ReactionOutcome, error)
	Get(ctx context.Context, userID, postID uint) (string, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository returns a ledger backed by post_reactions.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle moves the (user, post) ledger row to desired and recounts the post's
// likes and dislikes from the ledger, all in one transaction. desired is
// "like", "dislike" or "none".
func (r *reactionRepository) Toggle(ctx context.Context, userID, postID uint, desired string) (*ReactionOutcome, error) {
	defer observability.TrackQuery("toggle", "post_reactions")()

	var out ReactionOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the post serializes concurrent toggles on it; SQLite's
		// dialector drops the clause and relies on its single writer.
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&post, postID).Error; err != nil {
			return notFoundOr(err, "Post", postID)
		}

		var rows []models.PostReaction
		if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).Limit(1).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to read reaction: %w", err)
		}
		var current *models.PostReaction
		if len(rows) > 0 {
			current = &rows[0]
			out.Previous = current.Reaction
		}

		switch {
		case desired == models.ReactionNone && current != nil:
			if err := tx.Delete(&models.PostReaction{}, current.ID).Error; err != nil {
				return fmt.Errorf("failed to delete reaction: %w", err)
			}
		case desired == models.ReactionNone:
		case current == nil:
			row := &models.PostReaction{UserID: userID, PostID: postID, Reaction: desired}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"reaction", "updated_at"}),
			}).Create(row).Error; err != nil {
				return fmt.Errorf("failed to insert reaction: %w", err)
			}
		case current.Reaction != desired:
			if err := tx.Model(&models.PostReaction{}).
				Where("id = ?", current.ID).
				Updates(map[string]interface{}{"reaction": desired, "updated_at": time.Now().UTC()}).Error; err != nil {
				return fmt.Errorf("failed to update reaction: %w", err)
			}
		}
		if desired != models.ReactionNone {
			out.Current = desired
		}

		likes, dislikes, err := recountReactions(tx, postID)
		if err != nil {
			return err
		}
		out.Likes, out.Dislikes = likes, dislikes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func recountReactions(tx *gorm.DB, postID uint) (int, int, error) {
	var likes, dislikes int64
	if err := tx.Model(&models.PostReaction{}).
		Where("post_id = ? AND reaction = ?", postID, models.ReactionLike).
		Count(&likes).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count likes: %w", err)
	}
	if err := tx.Model(&models.PostReaction{}).
		Where("post_id = ? AND reaction = ?", postID, models.ReactionDislike).
		Count(&dislikes).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count dislikes: %w", err)
	}
	if err := tx.Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]interface{}{"likes": likes, "dislikes": dislikes}).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to update counters: %w", err)
	}
	return int(likes), int(dislikes), nil
}

func (r *reactionRepository) Get(ctx context.Context, userID, postID uint) (string, error) {
	var row models.PostReaction
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Reaction, nil
}
