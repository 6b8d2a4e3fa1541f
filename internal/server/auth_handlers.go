package server

import (
	"time"

	"schoolboard/internal/auth"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/signup. A successful signup is also a login:
// the session cookie and bearer token are issued the same way.
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} object{ok=bool,user=models.SafeUser,token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	c.Cookie(s.sessionCookie(res.SessionID, time.Now().Add(time.Duration(s.config.SessionTTLHours)*time.Hour)))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "user": res.User, "token": res.Token})
}

// Login handles POST /api/login. The session id goes out as an HttpOnly
// cookie; the bearer token in the body serves clients without cookies.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login request"
// @Success 200 {object} object{ok=bool,user=models.SafeUser,token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	c.Cookie(s.sessionCookie(res.SessionID, time.Now().Add(time.Duration(s.config.SessionTTLHours)*time.Hour)))
	return c.JSON(fiber.Map{"ok": true, "user": res.User, "token": res.Token})
}

// Logout handles POST /api/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(auth.SessionCookieName); sid != "" {
		if err := s.authService.Logout(c.UserContext(), sid); err != nil {
			return s.respondError(c, err)
		}
	}
	c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(fiber.Map{"ok": true})
}

// WhoAmI handles GET /api/whoami
func (s *Server) WhoAmI(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(fiber.Map{"ok": true, "user": nil})
	}
	return c.JSON(fiber.Map{
		"ok":     true,
		"user":   p.SafeUser(),
		"source": middleware.Auth(c).Source(),
	})
}

// CheckID handles GET /api/check-id?userId=
func (s *Server) CheckID(c *fiber.Ctx) error {
	if err := s.authService.CheckID(c.UserContext(), c.Query("userId")); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "available": true})
}

func (s *Server) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
