package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"schoolboard/internal/cache"
	"schoolboard/internal/comcigan"
	"schoolboard/internal/models"
)

const (
	weekendMessage = "주말에는 수업이 없습니다."
	noClassMessage = "오늘은 수업이 없어요."
)

// TimetableSource returns one class's lessons for a weekday (1 = Monday).
type TimetableSource interface {
	SchoolCode() int
	Day(ctx context.Context, grade, classNum, weekday int) ([]comcigan.Lesson, error)
}

type TimetableService struct {
	source TimetableSource
	ttl    time.Duration
}

// TimetableDay is the subject list of one class on one day. Message is set
// when there are no lessons.
type TimetableDay struct {
	Timetable []string `json:"timetable"`
	Message   string   `json:"message,omitempty"`
}

func NewTimetableService(source TimetableSource, ttl time.Duration) *TimetableService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TimetableService{source: source, ttl: ttl}
}

// Day returns the subjects of grade/classNum on date in period order.
func (s *TimetableService) Day(ctx context.Context, gradeParam, classParam, dateParam string) (*TimetableDay, error) {
	gradeParam = strings.TrimSpace(gradeParam)
	classParam = strings.TrimSpace(classParam)
	dateParam = strings.TrimSpace(dateParam)
	if gradeParam == "" || classParam == "" || dateParam == "" {
		return nil, models.NewValidationError("grade, classNum, date는 필수입니다.")
	}
	grade, err := strconv.Atoi(gradeParam)
	if err != nil || grade <= 0 {
		return nil, models.NewValidationError("grade must be a positive number")
	}
	classNum, err := strconv.Atoi(classParam)
	if err != nil || classNum <= 0 {
		return nil, models.NewValidationError("classNum must be a positive number")
	}
	date, err := parseYmd(dateParam)
	if err != nil {
		return nil, err
	}
	day, _ := time.Parse(ymdLayout, date)

	weekday := day.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return &TimetableDay{Timetable: []string{}, Message: weekendMessage}, nil
	}

	var subjects []string
	key := cache.TimetableKey(s.source.SchoolCode(), grade, classNum, date)
	err = cache.Aside(ctx, "timetable", key, &subjects, s.ttl, func() error {
		lessons, err := s.source.Day(ctx, grade, classNum, int(weekday))
		if err != nil {
			return err
		}
		subjects = make([]string, 0, len(lessons))
		for _, l := range lessons {
			subjects = append(subjects, l.Subject)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, comcigan.ErrUnknownClass) {
			return nil, models.NewValidationError("존재하지 않는 학년/반입니다.")
		}
		return nil, models.NewInternalError(err)
	}

	if len(subjects) == 0 {
		return &TimetableDay{Timetable: []string{}, Message: noClassMessage}, nil
	}
	return &TimetableDay{Timetable: subjects}, nil
}
