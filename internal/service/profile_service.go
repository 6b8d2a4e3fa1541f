package service

import (
	"context"
	"strings"

	"schoolboard/internal/auth"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"
	"schoolboard/internal/validation"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type ProfileService struct {
	users    repository.UserRepository
	activity repository.ProfileRepository
}

// Profile is the /me view of the caller.
type Profile struct {
	StudentID string                    `json:"studentId"`
	Name      string                    `json:"name"`
	Counts    repository.ActivityCounts `json:"counts"`
}

type UpdateProfileInput struct {
	Name        *string `json:"name"`
	NewPassword *string `json:"newPassword"`
}

// ActivityPage is one page of a profile list.
type ActivityPage struct {
	Items   []repository.ActivityItem `json:"items"`
	HasMore bool                      `json:"hasMore"`
}

// ActivityKind selects a profile list.
type ActivityKind string

const (
	ActivityPosts     ActivityKind = "posts"
	ActivityComments  ActivityKind = "comments"
	ActivityFavorites ActivityKind = "favorites"
)

func NewProfileService(users repository.UserRepository, activity repository.ProfileRepository) *ProfileService {
	return &ProfileService{users: users, activity: activity}
}

func (s *ProfileService) Me(ctx context.Context, p auth.Principal) (*Profile, error) {
	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, appErr(err)
	}
	counts, err := s.activity.Counts(ctx, user.StudentID, user.ID)
	if err != nil {
		return nil, appErr(err)
	}
	return &Profile{StudentID: user.StudentID, Name: user.Name, Counts: counts}, nil
}

// Update changes the caller's name and/or password. Omitted fields are kept.
func (s *ProfileService) Update(ctx context.Context, p auth.Principal, in UpdateProfileInput) (*models.SafeUser, error) {
	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, appErr(err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.NewValidationError("이름을 입력하세요.")
		}
		if err := validation.Var(name, "max=50"); err != nil {
			return nil, models.NewValidationError("이름이 너무 깁니다.")
		}
		if err := s.users.UpdateName(ctx, user.ID, name); err != nil {
			return nil, appErr(err)
		}
		user.Name = name
	}

	if in.NewPassword != nil {
		if err := validation.ValidatePassword(*in.NewPassword); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		cred, err := auth.HashPassword(*in.NewPassword)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if err := s.users.UpdatePassword(ctx, user.ID, cred.Value); err != nil {
			return nil, appErr(err)
		}
	}

	safe := toSafeUser(user)
	return &safe, nil
}

// List returns one page of the caller's posts, comments or favorites.
// page is zero-based.
func (s *ProfileService) List(ctx context.Context, p auth.Principal, kind ActivityKind, page, pageSize int) (*ActivityPage, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := page * pageSize

	var (
		items []repository.ActivityItem
		total int64
		err   error
	)
	switch kind {
	case ActivityPosts:
		items, total, err = s.activity.ListPosts(ctx, p.StudentID, pageSize, offset)
	case ActivityComments:
		items, total, err = s.activity.ListComments(ctx, p.StudentID, pageSize, offset)
	case ActivityFavorites:
		items, total, err = s.activity.ListFavorites(ctx, p.ID, pageSize, offset)
	default:
		return nil, models.NewValidationError("unknown list " + string(kind))
	}
	if err != nil {
		return nil, appErr(err)
	}
	if items == nil {
		items = []repository.ActivityItem{}
	}
	return &ActivityPage{Items: items, HasMore: int64((page+1)*pageSize) < total}, nil
}
