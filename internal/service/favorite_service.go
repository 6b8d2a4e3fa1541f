package service

import (
	"context"

	"schoolboard/internal/models"
	"schoolboard/internal/repository"
)

type FavoriteService struct {
	posts     repository.PostRepository
	favorites repository.FavoriteRepository
}

func NewFavoriteService(posts repository.PostRepository, favorites repository.FavoriteRepository) *FavoriteService {
	return &FavoriteService{posts: posts, favorites: favorites}
}

// Toggle flips the favorite mark and reports the new state.
func (s *FavoriteService) Toggle(ctx context.Context, userID, postID uint) (bool, error) {
	if userID == 0 {
		return false, models.NewUnauthorizedError("로그인이 필요합니다.")
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, appErr(err)
	}
	favorited, err := s.favorites.Toggle(ctx, userID, postID)
	if err != nil {
		return false, appErr(err)
	}
	return favorited, nil
}
