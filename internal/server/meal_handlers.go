package server

import (
	"schoolboard/internal/models"
	"schoolboard/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetMealWeek handles GET /api/meals/week?from=&to=
// @Summary Weekday menus
// @Description Dates accept YYYY-MM-DD or YYYYMMDD and default to today through today+6.
// @Tags meals
// @Produce json
// @Param from query string false "First day"
// @Param to query string false "Last day"
// @Success 200 {array} service.DayMenu
// @Failure 500 {object} models.ErrorResponse
// @Router /meals/week [get]
func (s *Server) GetMealWeek(c *fiber.Ctx) error {
	days, err := s.mealService.Week(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(days)
}

// GetMealDishes handles GET /api/meals/:date. The menu is fetched from NEIS
// the first time a date is requested.
func (s *Server) GetMealDishes(c *fiber.Ctx) error {
	date, dishes, err := s.mealService.Dishes(c.UserContext(), c.Params("date"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "dishes": dishes})
}

// SubmitMealFeedback handles POST /api/meals/:date/feedback
// @Summary Rate the dishes of a day
// @Description Resubmitting overwrites the caller's earlier feedback per dish.
// @Tags meals
// @Accept json
// @Produce json
// @Param date path string true "Meal date"
// @Param request body validation.FeedbackRequest true "Feedback"
// @Success 200 {object} object{ok=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /meals/{date}/feedback [post]
func (s *Server) SubmitMealFeedback(c *fiber.Ctx) error {
	var req validation.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.mealService.SubmitFeedback(c.UserContext(), viewerID(c), c.Params("date"), req); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// GetMealSummary handles GET /api/meals/:date/summary
func (s *Server) GetMealSummary(c *fiber.Ctx) error {
	date, summary, err := s.mealService.Summary(c.UserContext(), c.Params("date"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "summary": summary})
}

// GetMealAdminComments handles GET /api/meals/:date/admin/comments?dish=&flag=
func (s *Server) GetMealAdminComments(c *fiber.Ctx) error {
	p, _ := principal(c)
	date := c.Params("date")
	rows, err := s.mealService.AdminComments(c.UserContext(), p, date, c.Query("dish"), c.Query("flag"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "comments": rows})
}
