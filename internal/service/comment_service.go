package service

import (
	"context"
	"strings"

	"schoolboard/internal/events"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"
)

const anonymousAuthor = "익명"

type CommentService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	publisher events.Publisher
}

type CreateCommentInput struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	StudentID string `json:"studentId"`
	ParentID  *uint  `json:"parentId"`
}

func NewCommentService(posts repository.PostRepository, comments repository.CommentRepository, publisher events.Publisher) *CommentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &CommentService{posts: posts, comments: comments, publisher: publisher}
}

// List returns the threaded comments of a post in display order.
func (s *CommentService) List(ctx context.Context, postID uint) ([]models.CommentNode, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, appErr(err)
	}
	nodes, err := s.comments.ListTree(ctx, postID)
	if err != nil {
		return nil, appErr(err)
	}
	return nodes, nil
}

// Create adds a comment, optionally as a reply to another comment on the
// same post.
func (s *CommentService) Create(ctx context.Context, postID uint, in CreateCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("댓글이 비어 있습니다.")
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, appErr(err)
	}

	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			if isNotFound(err) {
				return nil, models.NewValidationError("parent comment does not exist")
			}
			return nil, appErr(err)
		}
		if parent.PostID != postID {
			return nil, models.NewValidationError("parent comment belongs to another post")
		}
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = anonymousAuthor
	}
	comment := &models.Comment{
		PostID:    postID,
		ParentID:  in.ParentID,
		Text:      text,
		Author:    author,
		StudentID: strings.TrimSpace(in.StudentID),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErr(err)
	}

	_ = s.publisher.Publish(ctx, events.NewBoardEvent(events.TypeCommentCreated, postID, comment))
	return comment, nil
}

// Update replaces the text of a comment owned by meta.
func (s *CommentService) Update(ctx context.Context, postID, commentID uint, text string, meta AuthorMeta) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("댓글이 비어 있습니다.")
	}
	comment, err := s.ownedComment(ctx, postID, commentID, meta)
	if err != nil {
		return nil, err
	}

	updated, err := s.comments.UpdateText(ctx, comment.ID, text)
	if err != nil {
		return nil, appErr(err)
	}

	_ = s.publisher.Publish(ctx, events.NewBoardEvent(events.TypeCommentUpdated, postID, updated))
	return updated, nil
}

// Delete removes a comment owned by meta together with its replies and
// returns how many rows went away.
func (s *CommentService) Delete(ctx context.Context, postID, commentID uint, meta AuthorMeta) (int64, error) {
	comment, err := s.ownedComment(ctx, postID, commentID, meta)
	if err != nil {
		return 0, err
	}

	deleted, err := s.comments.Delete(ctx, comment)
	if err != nil {
		return 0, appErr(err)
	}

	_ = s.publisher.Publish(ctx, events.NewBoardEvent(events.TypeCommentDeleted, postID, map[string]any{
		"commentId": commentID,
		"deleted":   deleted,
	}))
	return deleted, nil
}

func (s *CommentService) ownedComment(ctx context.Context, postID, commentID uint, meta AuthorMeta) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, appErr(err)
	}
	if comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	if err := checkOwner(meta, comment.Author, comment.StudentID); err != nil {
		return nil, err
	}
	return comment, nil
}
