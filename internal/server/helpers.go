package server

import (
	"errors"
	"net/url"
	"strings"
	"unicode"

	"schoolboard/internal/auth"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "postId" -> "post ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// statusForError maps a service error onto a response status. Anything that
// is not an AppError is an internal error.
func statusForError(err error) (int, *models.AppError) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr
	}
	return fiber.StatusInternalServerError, models.NewInternalError(err)
}

// respondError writes err using its mapped status. Causes of internal errors
// are only exposed in development.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status, appErr := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Request failed",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, appErr, s.config != nil && s.config.IsDevelopment())
}

// principal returns the signed-in caller, if any.
func principal(c *fiber.Ctx) (auth.Principal, bool) {
	p, err := middleware.Auth(c).CurrentUser()
	return p, err == nil
}

// viewerID is the caller's user id, or zero for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	if p, ok := principal(c); ok {
		return p.ID
	}
	return 0
}

// authorMeta collects the name and student id a caller claims for ownership
// checks. Headers win over body fields; a signed-in caller fills in whatever
// the request left empty.
func authorMeta(c *fiber.Ctx, bodyName, bodyStudentID string) service.AuthorMeta {
	meta := service.AuthorMeta{
		Name:      firstNonEmpty(headerValue(c, "X-Author-Name"), bodyName),
		StudentID: firstNonEmpty(headerValue(c, "X-Student-Id"), bodyStudentID),
	}.Normalize()
	if p, ok := principal(c); ok {
		if meta.Name == "" {
			meta.Name = p.Name
		}
		if meta.StudentID == "" {
			meta.StudentID = p.StudentID
		}
	}
	return meta
}

// headerValue reads a header that clients may percent-encode to carry
// non-ASCII names. Values that fail to decode are used as sent.
func headerValue(c *fiber.Ctx, key string) string {
	v := c.Get(key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// optionalBody parses a JSON body when one was sent. Bodies are optional on
// DELETE and similar requests.
func optionalBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(dest)
}
