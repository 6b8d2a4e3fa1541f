package service

import (
	"context"
	"log/slog"
	"strings"

	"schoolboard/internal/events"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"
	"schoolboard/internal/storage"
)

type PostService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	reactions repository.ReactionRepository
	favorites repository.FavoriteRepository
	images    repository.ImageRepository
	objects   storage.ObjectStorage
	ranker    *BestRanker
	publisher events.Publisher
}

// PostServiceDeps groups the collaborators of PostService.
type PostServiceDeps struct {
	Posts     repository.PostRepository
	Comments  repository.CommentRepository
	Reactions repository.ReactionRepository
	Favorites repository.FavoriteRepository
	Images    repository.ImageRepository
	Objects   storage.ObjectStorage
	Ranker    *BestRanker
	Publisher events.Publisher
}

type CreatePostInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Tag       string `json:"tag"`
	Author    string `json:"author"`
	StudentID string `json:"studentId"`
}

// PostDetail is a post with its thread and the viewer's state.
type PostDetail struct {
	models.Post
	Thread     []models.CommentNode `json:"comments"`
	MyReaction *string              `json:"myReaction"`
	Favorited  bool                 `json:"favorited"`
	Images     []models.PostImage   `json:"images"`
}

func NewPostService(deps PostServiceDeps) *PostService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PostService{
		posts:     deps.Posts,
		comments:  deps.Comments,
		reactions: deps.Reactions,
		favorites: deps.Favorites,
		images:    deps.Images,
		objects:   deps.Objects,
		ranker:    deps.Ranker,
		publisher: publisher,
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post := &models.Post{
		Title:     strings.TrimSpace(in.Title),
		Content:   strings.TrimSpace(in.Content),
		Tag:       strings.TrimSpace(in.Tag),
		Author:    strings.TrimSpace(in.Author),
		StudentID: strings.TrimSpace(in.StudentID),
	}
	if post.Title == "" || post.Content == "" || post.Tag == "" || post.Author == "" || post.StudentID == "" {
		return nil, models.NewValidationError("입력값 누락")
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, appErr(err)
	}

	s.ranker.Recompute(ctx)
	_ = s.publisher.Publish(ctx, events.NewBoardEvent(events.TypePostCreated, post.ID, post))
	return post, nil
}

// List returns posts matching query, best first, with viewerID's reaction.
func (s *PostService) List(ctx context.Context, query string, viewerID uint) ([]repository.PostListItem, error) {
	items, err := s.posts.List(ctx, strings.TrimSpace(query), viewerID)
	if err != nil {
		return nil, appErr(err)
	}
	return items, nil
}

func (s *PostService) ListBest(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.ListBest(ctx)
	if err != nil {
		return nil, appErr(err)
	}
	return posts, nil
}

// Detail loads a post with its comment tree. viewerID 0 is anonymous.
func (s *PostService) Detail(ctx context.Context, id, viewerID uint) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, appErr(err)
	}

	thread, err := s.comments.ListTree(ctx, id)
	if err != nil {
		return nil, appErr(err)
	}

	detail := &PostDetail{Post: *post, Thread: thread, Images: []models.PostImage{}}

	if s.images != nil {
		images, err := s.images.ListByPost(ctx, id)
		if err != nil {
			return nil, appErr(err)
		}
		detail.Images = images
	}

	if viewerID != 0 {
		reaction, err := s.reactions.Get(ctx, viewerID, id)
		if err != nil {
			return nil, appErr(err)
		}
		if reaction != "" {
			detail.MyReaction = &reaction
		}
		favorited, err := s.favorites.IsFavorited(ctx, viewerID, id)
		if err != nil {
			return nil, appErr(err)
		}
		detail.Favorited = favorited
	}
	return detail, nil
}

// Delete removes a post owned by meta along with everything attached to it.
// Stored image objects are removed after the rows are gone; failures there
// are only logged.
func (s *PostService) Delete(ctx context.Context, id uint, meta AuthorMeta) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &models.AppError{Code: models.CodeNotFound, Message: "게시글이 존재하지 않습니다."}
		}
		return appErr(err)
	}
	if err := checkOwner(meta, post.Author, post.StudentID); err != nil {
		return err
	}

	var images []models.PostImage
	if s.images != nil {
		if images, err = s.images.ListByPost(ctx, id); err != nil {
			return appErr(err)
		}
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return appErr(err)
	}

	if s.objects != nil {
		for _, img := range images {
			if err := s.objects.Remove(ctx, img.ObjectKey); err != nil {
				middleware.Logger.WarnContext(ctx, "Failed to remove image object",
					slog.String("key", img.ObjectKey), slog.String("error", err.Error()))
			}
		}
	}

	s.ranker.Recompute(ctx)
	_ = s.publisher.Publish(ctx, events.NewBoardEvent(events.TypePostDeleted, id, nil))
	return nil
}
