package service

import (
	"context"
	"log/slog"

	"schoolboard/internal/middleware"
	"schoolboard/internal/observability"
	"schoolboard/internal/repository"
)

// BestRanker recomputes the best-post flags after board changes. Failures
// never reach the caller.
type BestRanker struct {
	posts repository.PostRepository
}

func NewBestRanker(posts repository.PostRepository) *BestRanker {
	return &BestRanker{posts: posts}
}

func (r *BestRanker) Recompute(ctx context.Context) {
	if r == nil || r.posts == nil {
		return
	}
	if err := r.posts.RecomputeBest(ctx); err != nil {
		observability.BestRecomputeFailures.Inc()
		middleware.Logger.ErrorContext(ctx, "Best post recompute failed", slog.String("error", err.Error()))
	}
}
