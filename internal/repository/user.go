package repository

import (
	"context"
	"fmt"

	"schoolboard/internal/models"
	"schoolboard/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByLoginID(ctx context.Context, userID string) (*models.User, error)
	LoginIDExists(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uint, password string) error
	UpdateName(ctx context.Context, id uint, name string) error
	SetAdmin(ctx context.Context, id uint, admin bool) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get_by_id", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByLoginID(ctx context.Context, userID string) (*models.User, error) {
	defer observability.TrackQuery("get_by_login_id", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", userID)
	}
	return &user, nil
}

func (r *userRepository) LoginIDExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("이미 사용 중인 아이디입니다.")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, password string) error {
	return r.updateColumn(ctx, id, "password", password)
}

func (r *userRepository) UpdateName(ctx context.Context, id uint, name string) error {
	return r.updateColumn(ctx, id, "name", name)
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	return r.updateColumn(ctx, id, "is_admin", admin)
}

func (r *userRepository) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}
