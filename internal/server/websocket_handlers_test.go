package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolboard/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBoardWebSocketHandler_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ws/board", nil))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)
}
