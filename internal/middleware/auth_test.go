package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolboard/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverStub struct {
	sessions map[string]auth.Principal
	tokens   map[string]auth.Principal
}

func (r resolverStub) SessionPrincipal(_ context.Context, sid string) (auth.Principal, error) {
	if p, ok := r.sessions[sid]; ok {
		return p, nil
	}
	return auth.Principal{}, auth.ErrSessionNotFound
}

func (r resolverStub) TokenPrincipal(token string) (auth.Principal, error) {
	if p, ok := r.tokens[token]; ok {
		return p, nil
	}
	return auth.Principal{}, errors.New("invalid token")
}

func TestAuthContext(t *testing.T) {
	resolver := resolverStub{
		sessions: map[string]auth.Principal{"sid-1": {ID: 1, Name: "kim"}},
		tokens:   map[string]auth.Principal{"tok-2": {ID: 2, Name: "lee"}},
	}

	app := fiber.New()
	app.Use(AuthContext(resolver))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		ac := Auth(c)
		p, err := ac.CurrentUser()
		if err != nil {
			return c.JSON(fiber.Map{"source": "anonymous"})
		}
		return c.JSON(fiber.Map{"source": string(ac.Source()), "id": p.ID, "localsID": c.Locals("userID")})
	})
	app.Get("/private", AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name       string
		cookie     string
		authHeader string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"session cookie", "sid-1", "", "/whoami", http.StatusOK, `"source":"session"`},
		{"bearer token", "", "Bearer tok-2", "/whoami", http.StatusOK, `"source":"bearer"`},
		{"cookie wins over bearer", "sid-1", "Bearer tok-2", "/whoami", http.StatusOK, `"id":1`},
		{"stale cookie falls back to bearer", "gone", "Bearer tok-2", "/whoami", http.StatusOK, `"id":2`},
		{"bad token is anonymous", "", "Bearer nope", "/whoami", http.StatusOK, `"source":"anonymous"`},
		{"basic auth ignored", "", "Basic dXNlcjpwYXNz", "/whoami", http.StatusOK, `"source":"anonymous"`},
		{"private rejects anonymous", "", "", "/private", http.StatusUnauthorized, `"code":"UNAUTHORIZED"`},
		{"private accepts session", "sid-1", "", "/private", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tt.cookie})
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				body := readBody(t, resp)
				assert.Contains(t, body, tt.wantBody)
			}
		})
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
