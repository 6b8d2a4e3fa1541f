package service

import (
	"context"

	"schoolboard/internal/events"
	"schoolboard/internal/models"
	"schoolboard/internal/observability"
	"schoolboard/internal/repository"
)

type ReactionService struct {
	reactions repository.ReactionRepository
	ranker    *BestRanker
	publisher events.Publisher
}

// ReactionResult is the post's counters and the caller's reaction after a toggle.
type ReactionResult struct {
	Likes      int     `json:"likes"`
	Dislikes   int     `json:"dislikes"`
	MyReaction *string `json:"myReaction"`
}

func NewReactionService(reactions repository.ReactionRepository, ranker *BestRanker, publisher events.Publisher) *ReactionService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ReactionService{reactions: reactions, ranker: ranker, publisher: publisher}
}

// Toggle sets userID's reaction on postID to desired ("like", "dislike" or
// "none"). Setting the current value again changes nothing.
func (s *ReactionService) Toggle(ctx context.Context, userID, postID uint, desired string) (*ReactionResult, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("로그인이 필요합니다.")
	}
	switch desired {
	case models.ReactionLike, models.ReactionDislike, models.ReactionNone:
	default:
		return nil, models.NewValidationError("reaction must be like, dislike or none")
	}

	out, err := s.reactions.Toggle(ctx, userID, postID, desired)
	if err != nil {
		return nil, appErr(err)
	}
	observability.ReactionToggles.WithLabelValues(stateLabel(out.Previous) + "->" + stateLabel(out.Current)).Inc()

	result := &ReactionResult{Likes: out.Likes, Dislikes: out.Dislikes}
	if out.Current != "" {
		current := out.Current
		result.MyReaction = &current
	}

	s.ranker.Recompute(ctx)
	_ = s.publisher.Publish(ctx, events.NewBoardEvent(events.TypePostReactionUpdated, postID, map[string]int{
		"likes":    out.Likes,
		"dislikes": out.Dislikes,
	}))
	return result, nil
}

func stateLabel(state string) string {
	if state == "" {
		return models.ReactionNone
	}
	return state
}
