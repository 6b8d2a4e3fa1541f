package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"schoolboard/internal/auth"
	"schoolboard/internal/cache"
	"schoolboard/internal/models"
	"schoolboard/internal/neis"
	"schoolboard/internal/repository"
	"schoolboard/internal/validation"
)

const ymdLayout = "20060102"

// MealSource fetches raw meal rows for an inclusive YYYYMMDD range.
type MealSource interface {
	Meals(ctx context.Context, from, to string) ([]neis.Meal, error)
}

type MealService struct {
	meals  repository.MealRepository
	source MealSource
	now    func() time.Time
}

// DayMenu is one weekday of the week view. Menu and Cal are nil when NEIS
// has no meal for the day.
type DayMenu struct {
	Date string  `json:"date"`
	Menu *string `json:"menu"`
	Cal  *string `json:"cal"`
}

type DishRatio struct {
	Like    int `json:"like"`
	Neutral int `json:"neutral"`
	Dislike int `json:"dislike"`
}

type DishAverages struct {
	Salt    *float64 `json:"salt"`
	Temp    *float64 `json:"temp"`
	Portion *float64 `json:"portion"`
	Texture *float64 `json:"texture"`
}

// DishSummary is the public aggregate for one dish. It never carries
// free-text comments.
type DishSummary struct {
	MealDishID uint         `json:"mealDishId"`
	Dish       string       `json:"dish"`
	Samples    int64        `json:"samples"`
	Ratio      DishRatio    `json:"ratio"`
	Averages   DishAverages `json:"averages"`
}

func NewMealService(meals repository.MealRepository, source MealSource) *MealService {
	return &MealService{meals: meals, source: source, now: time.Now}
}

// Week returns the weekday menus between from and to. Empty bounds default
// to today and today+6.
func (s *MealService) Week(ctx context.Context, from, to string) ([]DayMenu, error) {
	today := s.now()
	from = onlyYmd(from)
	if from == "" {
		from = today.Format(ymdLayout)
	}
	to = onlyYmd(to)
	if to == "" {
		to = today.AddDate(0, 0, 6).Format(ymdLayout)
	}
	start, err := time.Parse(ymdLayout, from)
	if err != nil {
		return nil, models.NewValidationError("from must be YYYYMMDD")
	}
	end, err := time.Parse(ymdLayout, to)
	if err != nil {
		return nil, models.NewValidationError("to must be YYYYMMDD")
	}

	var week []DayMenu
	err = cache.Aside(ctx, "meals", cache.MealWeekKey(from, to), &week, cache.MealWeekTTL, func() error {
		rows, err := s.source.Meals(ctx, from, to)
		if err != nil {
			return err
		}
		byDate := make(map[string]neis.Meal, len(rows))
		for _, row := range rows {
			byDate[row.Date] = row
		}

		week = []DayMenu{}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			key := d.Format(ymdLayout)
			day := DayMenu{Date: key}
			if row, ok := byDate[key]; ok {
				menu := neis.MenuText(row.Dishes)
				cal := neis.CalorieText(row.Calories)
				day.Menu, day.Cal = &menu, &cal
			}
			week = append(week, day)
		}
		return nil
	})
	if err != nil {
		return nil, appErr(err)
	}
	return week, nil
}

// EnsureMenu loads the menu for date from NEIS unless dishes are already
// stored for it.
func (s *MealService) EnsureMenu(ctx context.Context, date string) error {
	n, err := s.meals.CountDishesOn(ctx, date)
	if err != nil {
		return appErr(err)
	}
	if n > 0 {
		return nil
	}

	rows, err := s.source.Meals(ctx, date, date)
	if err != nil {
		return appErr(err)
	}
	var dishes []string
	for _, row := range rows {
		if row.Date == date {
			dishes = append(dishes, neis.SplitMenus(row.Dishes)...)
		}
	}
	if len(dishes) == 0 {
		return nil
	}
	if err := s.meals.SaveMenu(ctx, date, dishes); err != nil {
		return appErr(err)
	}
	return nil
}

// Dishes returns the normalized date and its dishes, ordered by name.
func (s *MealService) Dishes(ctx context.Context, rawDate string) (string, []repository.MealDishRow, error) {
	date, err := parseYmd(rawDate)
	if err != nil {
		return "", nil, err
	}
	if err := s.EnsureMenu(ctx, date); err != nil {
		return "", nil, err
	}
	rows, err := s.meals.ListDishes(ctx, date)
	if err != nil {
		return "", nil, appErr(err)
	}
	if rows == nil {
		rows = []repository.MealDishRow{}
	}
	return date, rows, nil
}

// SubmitFeedback upserts the caller's ratings for dishes served on rawDate.
// A resubmission overwrites the previous rating.
func (s *MealService) SubmitFeedback(ctx context.Context, userID uint, rawDate string, req validation.FeedbackRequest) error {
	if userID == 0 {
		return models.NewUnauthorizedError("로그인이 필요합니다.")
	}
	date, err := parseYmd(rawDate)
	if err != nil {
		return err
	}
	if len(req.Items) == 0 {
		return models.NewValidationError("items가 비었습니다.")
	}
	for _, item := range req.Items {
		if item.LikeFlag == nil {
			return models.NewValidationError("선호도(like_flag)는 필수입니다.")
		}
	}
	if err := validation.Struct(req); err != nil {
		return models.NewValidationError(err.Error())
	}

	served, err := s.meals.MealDishIDsOn(ctx, date)
	if err != nil {
		return appErr(err)
	}

	rows := make([]models.DishFeedback, 0, len(req.Items))
	for _, item := range req.Items {
		if !served[item.MealDishID] {
			return models.NewValidationError("mealDishId " + strconv.FormatUint(uint64(item.MealDishID), 10) + " is not on the menu for " + date)
		}
		rows = append(rows, models.DishFeedback{
			UserID:       userID,
			MealDishID:   item.MealDishID,
			LikeFlag:     *item.LikeFlag,
			SaltLevel:    item.SaltLevel,
			TempLevel:    item.TempLevel,
			PortionLevel: item.PortionLevel,
			TextureLevel: item.TextureLevel,
			KeepText:     validation.CleanFeedbackText(item.KeepText),
			ImproveText:  validation.CleanFeedbackText(item.ImproveText),
		})
	}

	if err := s.meals.UpsertFeedback(ctx, rows); err != nil {
		return appErr(err)
	}
	return nil
}

// Summary returns per-dish ratios in whole percent and level averages
// rounded to one decimal.
func (s *MealService) Summary(ctx context.Context, rawDate string) (string, []DishSummary, error) {
	date, err := parseYmd(rawDate)
	if err != nil {
		return "", nil, err
	}
	if err := s.EnsureMenu(ctx, date); err != nil {
		return "", nil, err
	}
	rows, err := s.meals.Summary(ctx, date)
	if err != nil {
		return "", nil, appErr(err)
	}

	out := make([]DishSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, DishSummary{
			MealDishID: r.MealDishID,
			Dish:       r.Dish,
			Samples:    r.N,
			Ratio: DishRatio{
				Like:    percent(r.LikeCnt, r.N),
				Neutral: percent(r.NeutralCnt, r.N),
				Dislike: percent(r.DislikeCnt, r.N),
			},
			Averages: DishAverages{
				Salt:    round1(r.SaltAvg),
				Temp:    round1(r.TempAvg),
				Portion: round1(r.PortionAvg),
				Texture: round1(r.TextureAvg),
			},
		})
	}
	return date, out, nil
}

// AdminComments lists private feedback text for admins. flag, when set,
// must be -1, 0 or 1.
func (s *MealService) AdminComments(ctx context.Context, p auth.Principal, rawDate, dish, flag string) ([]repository.AdminCommentRow, error) {
	if !p.IsAdmin {
		return nil, models.NewForbiddenError("관리자만 접근할 수 있습니다.")
	}
	date, err := parseYmd(rawDate)
	if err != nil {
		return nil, err
	}

	var filter repository.AdminCommentFilter
	if dish = strings.TrimSpace(dish); dish != "" {
		filter.Dish = &dish
	}
	if flag = strings.TrimSpace(flag); flag != "" {
		v, err := strconv.Atoi(flag)
		if err != nil || v < -1 || v > 1 {
			return nil, models.NewValidationError("flag must be -1, 0 or 1")
		}
		filter.LikeFlag = &v
	}

	rows, err := s.meals.AdminComments(ctx, date, filter)
	if err != nil {
		return nil, appErr(err)
	}
	if rows == nil {
		rows = []repository.AdminCommentRow{}
	}
	return rows, nil
}

// onlyYmd keeps the first eight digits of s, so both YYYY-MM-DD and
// YYYYMMDD are accepted.
func onlyYmd(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == 8 {
			break
		}
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseYmd(raw string) (string, error) {
	date := onlyYmd(raw)
	if _, err := time.Parse(ymdLayout, date); err != nil {
		return "", models.NewValidationError("date must be YYYYMMDD or YYYY-MM-DD")
	}
	return date, nil
}

func percent(x, n int64) int {
	if n == 0 {
		return 0
	}
	return int(math.Floor(float64(x)/float64(n)*100 + 0.5))
}

func round1(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Floor(*v*10+0.5) / 10
	return &r
}
