package server

import (
	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
// @Summary Threaded comments of a post
// @Description Depth-first order; each node carries its depth.
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.CommentNode
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.commentService.List(c.UserContext(), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(thread)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.CreateCommentInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if p, ok := principal(c); ok {
		if req.Author == "" {
			req.Author = p.Name
		}
		if req.StudentID == "" {
			req.StudentID = p.StudentID
		}
	}

	comment, err := s.commentService.Create(c.UserContext(), postID, req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "comment": comment})
}

// UpdateComment handles PUT /api/posts/:postId/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req struct {
		ownerRequest
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Update(c.UserContext(), postID, commentID, req.Text,
		authorMeta(c, req.name(), req.StudentID))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:postId/comments/:commentId.
// Replies below the comment are removed with it.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req ownerRequest
	if err := optionalBody(c, &req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	deleted, err := s.commentService.Delete(c.UserContext(), postID, commentID,
		authorMeta(c, req.name(), req.StudentID))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "deleted": deleted})
}
