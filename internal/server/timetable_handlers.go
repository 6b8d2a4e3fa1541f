package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetTimetable handles GET /api/timetable?grade=&classNum=&date=
// @Summary Class timetable for one day
// @Tags timetable
// @Produce json
// @Param grade query int true "Grade"
// @Param classNum query int true "Class number"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} service.TimetableDay
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /timetable [get]
func (s *Server) GetTimetable(c *fiber.Ctx) error {
	day, err := s.timetableService.Day(c.UserContext(), c.Query("grade"), c.Query("classNum"), c.Query("date"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(day)
}
