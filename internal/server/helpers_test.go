package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolboard/internal/auth"
	"schoolboard/internal/config"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return gormDB, mock
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"postId", "post ID"},
		{"commentId", "comment ID"},
		{"mealDishId", "meal dish ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParseID_ContextSpecificErrorMessage(t *testing.T) {
	tests := []struct {
		param       string
		value       string
		wantStatus  int
		expectedMsg string
	}{
		{"id", "42", http.StatusOK, ""},
		{"id", "abc", http.StatusBadRequest, "Invalid ID"},
		{"id", "0", http.StatusBadRequest, "Invalid ID"},
		{"postId", "abc", http.StatusBadRequest, "Invalid post ID"},
		{"commentId", "-3", http.StatusBadRequest, "Invalid comment ID"},
	}
	for _, tt := range tests {
		t.Run(tt.param+"="+tt.value, func(t *testing.T) {
			app := fiber.New()
			s := &Server{}
			app.Get("/items/:"+tt.param, func(c *fiber.Ctx) error {
				id, err := s.parseID(c, tt.param)
				if err != nil {
					return nil
				}
				return c.JSON(fiber.Map{"id": id})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+tt.value, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.expectedMsg != "" {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedMsg, body["error"])
			}
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest, models.CodeValidation},
		{"unauthorized", models.NewUnauthorizedError("who"), http.StatusUnauthorized, models.CodeUnauthorized},
		{"forbidden", models.NewForbiddenError("no"), http.StatusForbidden, models.CodeForbidden},
		{"not found", models.NewNotFoundError("Post", 1), http.StatusNotFound, models.CodeNotFound},
		{"conflict", models.NewConflictError("dup"), http.StatusConflict, models.CodeConflict},
		{"wrapped", errors.Join(errors.New("ctx"), models.NewForbiddenError("no")), http.StatusForbidden, models.CodeForbidden},
		{"plain", errors.New("boom"), http.StatusInternalServerError, models.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, appErr := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestRespondError_HidesInternalDetailsOutsideDevelopment(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			s := &Server{config: &config.Config{Env: env}}
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return s.respondError(c, models.NewInternalError(errors.New("disk on fire")))
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, models.CodeInternal, body.Code)
			if env == "development" {
				assert.Equal(t, "disk on fire", body.Details)
			} else {
				assert.Empty(t, body.Details)
			}
		})
	}
}

// bearerOnly resolves the bearer token "good" to a fixed principal.
type bearerOnly struct {
	principal auth.Principal
}

func (bearerOnly) SessionPrincipal(context.Context, string) (auth.Principal, error) {
	return auth.Principal{}, auth.ErrSessionNotFound
}

func (b bearerOnly) TokenPrincipal(token string) (auth.Principal, error) {
	if token != "good" {
		return auth.Principal{}, errors.New("bad token")
	}
	return b.principal, nil
}

func TestAuthorMeta(t *testing.T) {
	signedIn := auth.Principal{ID: 7, Name: "김철수", StudentID: "2025-0007"}

	tests := []struct {
		name     string
		header   map[string]string
		bodyName string
		bodySID  string
		signedIn bool
		want     service.AuthorMeta
	}{
		{
			name:     "headers win over body",
			header:   map[string]string{"X-Author-Name": "헤더", "X-Student-Id": "h-1"},
			bodyName: "본문",
			bodySID:  "b-1",
			want:     service.AuthorMeta{Name: "헤더", StudentID: "h-1"},
		},
		{
			name:   "percent-encoded header",
			header: map[string]string{"X-Author-Name": "%EA%B9%80", "X-Student-Id": "h-1"},
			want:   service.AuthorMeta{Name: "김", StudentID: "h-1"},
		},
		{
			name:     "body fields",
			bodyName: " 본문 ",
			bodySID:  "b-1",
			want:     service.AuthorMeta{Name: "본문", StudentID: "b-1"},
		},
		{
			name:     "session fills the gaps",
			bodyName: "본문",
			signedIn: true,
			want:     service.AuthorMeta{Name: "본문", StudentID: "2025-0007"},
		},
		{
			name: "anonymous and empty",
			want: service.AuthorMeta{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.AuthorMeta
			app := fiber.New()
			app.Use(middleware.AuthContext(bearerOnly{signedIn}))
			app.Get("/", func(c *fiber.Ctx) error {
				got = authorMeta(c, tt.bodyName, tt.bodySID)
				return nil
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if tt.signedIn {
				req.Header.Set(fiber.HeaderAuthorization, "Bearer good")
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewerID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.AuthContext(bearerOnly{auth.Principal{ID: 9}}))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"viewer": viewerID(c)})
	})

	for _, tc := range []struct {
		header string
		want   float64
	}{
		{"", 0},
		{"Bearer good", 9},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		var body map[string]float64
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, tc.want, body["viewer"])
	}
}

func TestReadinessCheck_DatabaseDown(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	s := &Server{config: &config.Config{}, db: db}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}
