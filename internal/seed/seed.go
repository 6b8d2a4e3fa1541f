package seed

import (
	"context"
	"fmt"
	"log/slog"

	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"

	"gorm.io/gorm"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	MaxDays     int
	// SkipBcrypt stores DemoPassword as legacy plaintext. Login still works
	// and upgrades the row on first use.
	SkipBcrypt bool
	RandSeed   int64
}

// tablesInDeleteOrder lists every data table, children first.
var tablesInDeleteOrder = []string{
	"dish_feedback", "meal_dishes", "dishes",
	"post_images", "favorites", "post_reactions", "comments", "posts",
	"sessions", "users",
}

// Seeder fills a database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll deletes every row from the data tables. Migration history is kept.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tablesInDeleteOrder {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Baseline inserts the starter account and post when their tables are empty.
// The account keeps the legacy plaintext password "hash", so it exercises
// the upgrade-on-login path.
func (s *Seeder) Baseline(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users == 0 {
		u := &models.User{StudentID: "2025-0001", Name: "테스트", UserID: "testuser", Password: "hash"}
		if err := db.Create(u).Error; err != nil {
			return fmt.Errorf("seed baseline user: %w", err)
		}
		middleware.Logger.Info("Seeded baseline user", slog.String("user_id", u.UserID))
	}

	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if posts == 0 {
		p := &models.Post{
			Title:     "첫 글",
			Content:   "안녕하세요! 첫 글입니다.",
			Tag:       "공지",
			Author:    "테스트",
			StudentID: "2025-0001",
		}
		if err := db.Create(p).Error; err != nil {
			return fmt.Errorf("seed baseline post: %w", err)
		}
		middleware.Logger.Info("Seeded baseline post", slog.Uint64("post_id", uint64(p.ID)))
	}
	return nil
}

// Run seeds the baseline rows, then NumUsers users and NumPosts posts with
// comments, reactions and favorites spread across them. Best posts are
// recomputed at the end.
func (s *Seeder) Run(ctx context.Context) error {
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return err
		}
	}
	if err := s.Baseline(ctx); err != nil {
		return err
	}
	if s.opts.NumUsers <= 0 {
		return nil
	}

	f := s.factory
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return err
		}
		users = append(users, u)
	}

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		post, err := f.CreatePost(ctx, author)
		if err != nil {
			return err
		}
		if err := s.engage(ctx, users, post); err != nil {
			return err
		}
	}

	if err := repository.NewPostRepository(s.db).RecomputeBest(ctx); err != nil {
		return fmt.Errorf("recompute best posts: %w", err)
	}
	middleware.Logger.Info("Seeding complete",
		slog.Int("users", len(users)),
		slog.Int("posts", s.opts.NumPosts))
	return nil
}

// engage adds a short thread and some reactions to post.
func (s *Seeder) engage(ctx context.Context, users []*models.User, post *models.Post) error {
	f := s.factory

	var last *models.Comment
	for n := f.rng.Intn(4); n > 0; n-- {
		var parent *models.Comment
		if last != nil && f.rng.Intn(2) == 0 {
			parent = last
		}
		c, err := f.CreateComment(ctx, users[f.rng.Intn(len(users))], post, parent)
		if err != nil {
			return err
		}
		last = c
	}

	for _, u := range users {
		switch f.rng.Intn(6) {
		case 0, 1:
			if err := f.React(ctx, u, post, models.ReactionLike); err != nil {
				return err
			}
		case 2:
			if err := f.React(ctx, u, post, models.ReactionDislike); err != nil {
				return err
			}
		}
		if f.rng.Intn(10) == 0 {
			if err := f.Favorite(ctx, u, post); err != nil {
				return err
			}
		}
	}
	return nil
}
