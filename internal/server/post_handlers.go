package server

import (
	"strings"

	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ownerRequest is the optional body of owner-only requests.
type ownerRequest struct {
	AuthorName string `json:"authorName"`
	Author     string `json:"author"`
	StudentID  string `json:"studentId"`
}

func (r ownerRequest) name() string {
	return firstNonEmpty(r.AuthorName, r.Author)
}

// GetPosts handles GET /api/posts?q=
// @Summary List posts
// @Description Best posts first, then newest. q filters title and content.
// @Tags posts
// @Produce json
// @Param q query string false "Search keyword"
// @Success 200 {array} repository.PostListItem
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.List(c.UserContext(), strings.TrimSpace(c.Query("q")), viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetBestPosts handles GET /api/posts/best
func (s *Server) GetBestPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListBest(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body service.CreatePostInput true "Post"
// @Success 201 {object} object{success=bool,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if p, ok := principal(c); ok {
		if strings.TrimSpace(req.Author) == "" {
			req.Author = p.Name
		}
		if strings.TrimSpace(req.StudentID) == "" {
			req.StudentID = p.StudentID
		}
	}

	post, err := s.postService.Create(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "post": post})
}

// GetPost handles GET /api/posts/:id
// @Summary Post detail
// @Description The post with its comment tree, the viewer's reaction and favorite flag, and images.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.postService.Detail(c.UserContext(), id, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(detail)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ownerRequest
	if err := optionalBody(c, &req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.postService.Delete(c.UserContext(), id, authorMeta(c, req.name(), req.StudentID)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ReactToPost handles POST /api/posts/:id/reaction
// @Summary Set the caller's reaction
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{reaction=string} true "like, dislike or none"
// @Success 200 {object} service.ReactionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/reaction [post]
func (s *Server) ReactToPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Reaction string `json:"reaction"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.reactionService.Toggle(c.UserContext(), viewerID(c), id, req.Reaction)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(res)
}

// ToggleFavorite handles POST /api/posts/:id/favorite
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	favorited, err := s.favoriteService.Toggle(c.UserContext(), viewerID(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"favorited": favorited})
}
