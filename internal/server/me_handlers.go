package server

import (
	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/me
// @Summary Caller profile with activity counts
// @Tags me
// @Produce json
// @Success 200 {object} object{ok=bool,user=service.Profile}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	p, _ := principal(c)
	profile, err := s.profileService.Me(c.UserContext(), p)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": profile})
}

// UpdateMe handles PUT /api/me
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	p, _ := principal(c)
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.profileService.Update(c.UserContext(), p, req)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": user})
}

// listActivity serves GET /api/me/{posts,comments,favorites}?page=&pageSize=
func (s *Server) listActivity(kind service.ActivityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, _ := principal(c)
		page, err := s.profileService.List(c.UserContext(), p, kind,
			c.QueryInt("page", 0), c.QueryInt("pageSize", 0))
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(page)
	}
}
