package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"schoolboard/internal/auth"
	"schoolboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

const authLocalsKey = "auth"

// PrincipalResolver turns a session id or bearer token into the caller.
type PrincipalResolver interface {
	SessionPrincipal(ctx context.Context, sessionID string) (auth.Principal, error)
	TokenPrincipal(token string) (auth.Principal, error)
}

// AuthContext attaches an auth.Context to every request. The session cookie
// wins over a bearer token; a stale or invalid credential leaves the request
// anonymous instead of rejecting it.
func AuthContext(resolver PrincipalResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := resolve(c, resolver)
		c.Locals(authLocalsKey, ac)

		if p, err := ac.CurrentUser(); err == nil {
			c.Locals("userID", p.ID)
			c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, p.ID))
		}
		return c.Next()
	}
}

func resolve(c *fiber.Ctx, resolver PrincipalResolver) auth.Context {
	if sid := c.Cookies(auth.SessionCookieName); sid != "" {
		p, err := resolver.SessionPrincipal(c.UserContext(), sid)
		if err == nil {
			return auth.NewSessionContext(p, sid)
		}
		if !errors.Is(err, auth.ErrSessionNotFound) {
			Logger.WarnContext(c.UserContext(), "session lookup failed", slog.String("error", err.Error()))
		}
	}

	if token := bearerToken(c.Get(fiber.HeaderAuthorization)); token != "" {
		if p, err := resolver.TokenPrincipal(token); err == nil {
			return auth.NewBearerContext(p)
		}
	}
	return auth.Anonymous()
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Auth returns the request's auth context. Requests that did not pass
// through AuthContext are anonymous.
func Auth(c *fiber.Ctx) auth.Context {
	if ac, ok := c.Locals(authLocalsKey).(auth.Context); ok {
		return ac
	}
	return auth.Anonymous()
}

// AuthRequired rejects anonymous requests with 401.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Auth(c).Authenticated() {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("로그인이 필요합니다."))
		}
		return c.Next()
	}
}
