// Package bootstrap connects the runtime dependencies shared by the server
// and the maintenance commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"schoolboard/internal/auth"
	"schoolboard/internal/cache"
	"schoolboard/internal/config"
	"schoolboard/internal/database"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedBaseline inserts the starter account and post into empty tables.
	SeedBaseline bool
}

// InitRuntime connects to the database (running pending migrations) and to
// Redis. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedBaseline {
		if err := seed.NewSeeder(db, seed.Options{}).Baseline(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed baseline data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin creates or promotes the development admin account when
// DEV_BOOTSTRAP_ADMIN is set. It never runs outside development.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !cfg.IsDevelopment() || !cfg.DevBootstrapAdmin {
		return nil
	}

	userID := strings.TrimSpace(cfg.DevAdminUserID)
	if userID == "" {
		userID = "admin"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	cred, err := auth.HashPassword(cfg.DevAdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("user_id = ?", userID).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				StudentID: "ADMIN",
				Name:      "관리자",
				UserID:    userID,
				Password:  cred.Value,
				IsAdmin:   true,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", admin.ID).
				Updates(map[string]any{"is_admin": true, "password": cred.Value}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("Development admin ensured", slog.String("user_id", userID))
	return nil
}
