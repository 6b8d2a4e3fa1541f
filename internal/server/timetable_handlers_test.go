package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoolboard/internal/comcigan"
	"schoolboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTimetableSource struct {
	mock.Mock
}

func (m *mockTimetableSource) SchoolCode() int {
	return 12345
}

func (m *mockTimetableSource) Day(ctx context.Context, grade, classNum, weekday int) ([]comcigan.Lesson, error) {
	args := m.Called(ctx, grade, classNum, weekday)
	lessons, _ := args.Get(0).([]comcigan.Lesson)
	return lessons, args.Error(1)
}

func withTimetable(env *testEnv, src service.TimetableSource) {
	env.srv.timetableService = service.NewTimetableService(src, time.Minute)
}

func TestGetTimetable(t *testing.T) {
	env := newTestEnv(t)
	src := new(mockTimetableSource)
	// 2025-03-04 is a Tuesday.
	src.On("Day", mock.Anything, 2, 3, 2).Return([]comcigan.Lesson{
		{Period: 1, Subject: "국어"},
		{Period: 2, Subject: "수학"},
	}, nil).Once()
	withTimetable(env, src)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/timetable?grade=2&classNum=3&date=2025-03-04", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[service.TimetableDay](t, body)
	assert.Equal(t, []string{"국어", "수학"}, got.Timetable)
	assert.Empty(t, got.Message)
	src.AssertExpectations(t)
}

func TestGetTimetable_WeekendSkipsUpstream(t *testing.T) {
	env := newTestEnv(t)
	src := new(mockTimetableSource)
	withTimetable(env, src)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/timetable?grade=2&classNum=3&date=2025-03-08", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[service.TimetableDay](t, body)
	assert.Empty(t, got.Timetable)
	assert.NotEmpty(t, got.Message)
	src.AssertNotCalled(t, "Day", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTimetable_Errors(t *testing.T) {
	env := newTestEnv(t)
	src := new(mockTimetableSource)
	src.On("Day", mock.Anything, 9, 9, 2).Return(nil, comcigan.ErrUnknownClass)
	src.On("Day", mock.Anything, 1, 1, 2).Return(nil, errors.New("upstream down"))
	withTimetable(env, src)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing params", "grade=1", http.StatusBadRequest},
		{"bad grade", "grade=x&classNum=1&date=20250304", http.StatusBadRequest},
		{"unknown class", "grade=9&classNum=9&date=20250304", http.StatusBadRequest},
		{"upstream failure", "grade=1&classNum=1&date=20250304", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/timetable?"+tt.query, nil))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}
