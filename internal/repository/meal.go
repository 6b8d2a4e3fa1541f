package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MealDishRow is one dish on a day's menu.
type MealDishRow struct {
	MealDishID uint   `json:"mealDishId"`
	Dish       string `json:"dish"`
}

// DishSummaryRow holds the raw feedback aggregates for one dish.
type DishSummaryRow struct {
	MealDishID uint
	Dish       string
	N          int64
	LikeCnt    int64
	NeutralCnt int64
	DislikeCnt int64
	SaltAvg    *float64
	TempAvg    *float64
	PortionAvg *float64
	TextureAvg *float64
}

// AdminCommentFilter narrows the admin comment view. Nil fields are ignored.
type AdminCommentFilter struct {
	Dish     *string
	LikeFlag *int
}

// AdminCommentRow is a private feedback comment.
type AdminCommentRow struct {
	Dish        string    `json:"dish"`
	LikeFlag    int       `json:"like_flag"`
	KeepText    string    `json:"keep_text"`
	ImproveText string    `json:"improve_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// MealRepository stores daily menus and per-dish feedback.
type MealRepository interface {
	CountDishesOn(ctx context.Context, date string) (int64, error)
	SaveMenu(ctx context.Context, date string, dishes []string) error
	ListDishes(ctx context.Context, date string) ([]MealDishRow, error)
	MealDishIDsOn(ctx context.Context, date string) (map[uint]bool, error)
	UpsertFeedback(ctx context.Context, items []models.DishFeedback) error
	Summary(ctx context.Context, date string) ([]DishSummaryRow, error)
	AdminComments(ctx context.Context, date string, filter AdminCommentFilter) ([]AdminCommentRow, error)
}

type mealRepository struct {
	db *gorm.DB

	ensureMu   sync.Mutex
	ensureDone bool
}

// NewMealRepository returns a MealRepository backed by dishes, meal_dishes and dish_feedback.
func NewMealRepository(db *gorm.DB) MealRepository {
	return &mealRepository{db: db}
}

func (r *mealRepository) CountDishesOn(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MealDish{}).Where("meal_date = ?", date).Count(&count).Error
	return count, err
}

// SaveMenu records the dishes served on date. Existing dishes and placements are kept.
func (r *mealRepository) SaveMenu(ctx context.Context, date string, dishes []string) error {
	defer observability.TrackQuery("save_menu", "meal_dishes")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range dishes {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Dish{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to upsert dish %q: %w", name, err)
			}
			var dish models.Dish
			if err := tx.Where("name = ?", name).First(&dish).Error; err != nil {
				return fmt.Errorf("failed to load dish %q: %w", name, err)
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.MealDish{MealDate: date, DishID: dish.ID}).Error; err != nil {
				return fmt.Errorf("failed to place dish %q on %s: %w", name, date, err)
			}
		}
		return nil
	})
}

func (r *mealRepository) ListDishes(ctx context.Context, date string) ([]MealDishRow, error) {
	rows := make([]MealDishRow, 0)
	err := r.db.WithContext(ctx).
		Table("meal_dishes md").
		Select("md.id AS meal_dish_id, d.name AS dish").
		Joins("JOIN dishes d ON d.id = md.dish_id").
		Where("md.meal_date = ?", date).
		Order("d.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	return rows, nil
}

func (r *mealRepository) MealDishIDsOn(ctx context.Context, date string) (map[uint]bool, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.MealDish{}).
		Where("meal_date = ?", date).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ensureUniqueIndex guarantees one feedback row per (user, meal dish) on
// databases created before the constraint was part of the schema.
func (r *mealRepository) ensureUniqueIndex(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.ensureDone {
		return nil
	}

	// Detached from the request so one cancelled caller cannot fail the DDL.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.db.WithContext(ctx).Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_df_user_meal ON dish_feedback(user_id, meal_dish_id)",
	).Error; err != nil {
		return err
	}
	r.ensureDone = true
	return nil
}

const feedbackUpsertSQL = `
INSERT INTO dish_feedback
	(user_id, meal_dish_id, like_flag, salt_level, temp_level, portion_level, texture_level, keep_text, improve_text, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, meal_dish_id) DO UPDATE SET
	like_flag = excluded.like_flag,
	salt_level = excluded.salt_level,
	temp_level = excluded.temp_level,
	portion_level = excluded.portion_level,
	texture_level = excluded.texture_level,
	keep_text = excluded.keep_text,
	improve_text = excluded.improve_text`

// UpsertFeedback writes every item in one transaction; a resubmission
// overwrites the user's earlier feedback for that dish.
func (r *mealRepository) UpsertFeedback(ctx context.Context, items []models.DishFeedback) error {
	defer observability.TrackQuery("upsert", "dish_feedback")()

	if err := r.ensureUniqueIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure feedback index: %w", err)
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			if err := tx.Exec(feedbackUpsertSQL,
				it.UserID, it.MealDishID, it.LikeFlag,
				it.SaltLevel, it.TempLevel, it.PortionLevel, it.TextureLevel,
				it.KeepText, it.ImproveText, now,
			).Error; err != nil {
				return fmt.Errorf("failed to upsert feedback for meal dish %d: %w", it.MealDishID, err)
			}
		}
		return nil
	})
}

func (r *mealRepository) Summary(ctx context.Context, date string) ([]DishSummaryRow, error) {
	defer observability.TrackQuery("summary", "dish_feedback")()

	rows := make([]DishSummaryRow, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT
	md.id AS meal_dish_id, d.name AS dish,
	COUNT(df.id) AS n,
	COALESCE(SUM(CASE WHEN df.like_flag = 1 THEN 1 ELSE 0 END), 0) AS like_cnt,
	COALESCE(SUM(CASE WHEN df.like_flag = 0 THEN 1 ELSE 0 END), 0) AS neutral_cnt,
	COALESCE(SUM(CASE WHEN df.like_flag = -1 THEN 1 ELSE 0 END), 0) AS dislike_cnt,
	AVG(df.salt_level * 1.0) AS salt_avg,
	AVG(df.temp_level * 1.0) AS temp_avg,
	AVG(df.portion_level * 1.0) AS portion_avg,
	AVG(df.texture_level * 1.0) AS texture_avg
FROM meal_dishes md
JOIN dishes d ON d.id = md.dish_id
LEFT JOIN dish_feedback df ON df.meal_dish_id = md.id
WHERE md.meal_date = ?
GROUP BY md.id, d.name
ORDER BY d.name`, date).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}
	return rows, nil
}

func (r *mealRepository) AdminComments(ctx context.Context, date string, filter AdminCommentFilter) ([]AdminCommentRow, error) {
	tx := r.db.WithContext(ctx).
		Table("meal_dishes md").
		Select("d.name AS dish, df.like_flag, df.keep_text, df.improve_text, df.created_at").
		Joins("JOIN dishes d ON d.id = md.dish_id").
		Joins("JOIN dish_feedback df ON df.meal_dish_id = md.id").
		Where("md.meal_date = ?", date)
	if filter.Dish != nil {
		tx = tx.Where("d.name = ?", *filter.Dish)
	}
	if filter.LikeFlag != nil {
		tx = tx.Where("df.like_flag = ?", *filter.LikeFlag)
	}

	rows := make([]AdminCommentRow, 0)
	if err := tx.Order("d.name, df.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list feedback comments: %w", err)
	}
	return rows, nil
}
