package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"schoolboard/internal/comcigan"
	"schoolboard/internal/events"
	"schoolboard/internal/models"
	"schoolboard/internal/neis"
	"schoolboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, string, uint) ([]repository.PostListItem, error)
	listBestFn      func(context.Context) ([]models.Post, error)
	deleteFn        func(context.Context, uint) error
	recomputeBestFn func(context.Context) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, query string, viewerID uint) ([]repository.PostListItem, error) {
	return s.listFn(ctx, query, viewerID)
}
func (s *postRepoStub) ListBest(ctx context.Context) ([]models.Post, error) {
	return s.listBestFn(ctx)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) RecomputeBest(ctx context.Context) error {
	return s.recomputeBestFn(ctx)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Author: "kim", StudentID: "2025-0001"}, nil
		},
		listFn:          func(_ context.Context, _ string, _ uint) ([]repository.PostListItem, error) { return nil, nil },
		listBestFn:      func(_ context.Context) ([]models.Post, error) { return nil, nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		recomputeBestFn: func(_ context.Context) error { return nil },
	}
}

func missingPost(_ context.Context, id uint) (*models.Post, error) {
	return nil, models.NewNotFoundError("Post", id)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listTreeFn   func(context.Context, uint) ([]models.CommentNode, error)
	updateTextFn func(context.Context, uint, string) (*models.Comment, error)
	deleteFn     func(context.Context, *models.Comment) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListTree(ctx context.Context, postID uint) ([]models.CommentNode, error) {
	return s.listTreeFn(ctx, postID)
}
func (s *commentRepoStub) UpdateText(ctx context.Context, id uint, text string) (*models.Comment, error) {
	return s.updateTextFn(ctx, id, text)
}
func (s *commentRepoStub) Delete(ctx context.Context, c *models.Comment) (int64, error) {
	return s.deleteFn(ctx, c)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error { c.ID = 10; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, Author: "kim", StudentID: "2025-0001"}, nil
		},
		listTreeFn: func(_ context.Context, _ uint) ([]models.CommentNode, error) { return []models.CommentNode{}, nil },
		updateTextFn: func(_ context.Context, id uint, text string) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, Text: text}, nil
		},
		deleteFn: func(_ context.Context, _ *models.Comment) (int64, error) { return 1, nil },
	}
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	toggleFn func(context.Context, uint, uint, string) (*repository.ReactionOutcome, error)
	getFn    func(context.Context, uint, uint) (string, error)
}

func (s *reactionRepoStub) Toggle(ctx context.Context, userID, postID uint, desired string) (*repository.ReactionOutcome, error) {
	return s.toggleFn(ctx, userID, postID, desired)
}
func (s *reactionRepoStub) Get(ctx context.Context, userID, postID uint) (string, error) {
	return s.getFn(ctx, userID, postID)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		toggleFn: func(_ context.Context, _, _ uint, _ string) (*repository.ReactionOutcome, error) {
			return &repository.ReactionOutcome{}, nil
		},
		getFn: func(_ context.Context, _, _ uint) (string, error) { return "", nil },
	}
}

// favoriteRepoStub is a stub for repository.FavoriteRepository.
type favoriteRepoStub struct {
	toggleFn      func(context.Context, uint, uint) (bool, error)
	isFavoritedFn func(context.Context, uint, uint) (bool, error)
}

func (s *favoriteRepoStub) Toggle(ctx context.Context, userID, postID uint) (bool, error) {
	return s.toggleFn(ctx, userID, postID)
}
func (s *favoriteRepoStub) IsFavorited(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isFavoritedFn(ctx, userID, postID)
}

func noopFavoriteRepo() *favoriteRepoStub {
	return &favoriteRepoStub{
		toggleFn:      func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		isFavoritedFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// imageRepoStub is a stub for repository.ImageRepository.
type imageRepoStub struct {
	createFn        func(context.Context, *models.PostImage) error
	listByPostFn    func(context.Context, uint) ([]models.PostImage, error)
	nextSortOrderFn func(context.Context, uint) (int, error)
}

func (s *imageRepoStub) Create(ctx context.Context, img *models.PostImage) error {
	return s.createFn(ctx, img)
}
func (s *imageRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.PostImage, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *imageRepoStub) NextSortOrder(ctx context.Context, postID uint) (int, error) {
	return s.nextSortOrderFn(ctx, postID)
}

func noopImageRepo() *imageRepoStub {
	return &imageRepoStub{
		createFn:        func(_ context.Context, _ *models.PostImage) error { return nil },
		listByPostFn:    func(_ context.Context, _ uint) ([]models.PostImage, error) { return []models.PostImage{}, nil },
		nextSortOrderFn: func(_ context.Context, _ uint) (int, error) { return 0, nil },
	}
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	countsFn        func(context.Context, string, uint) (repository.ActivityCounts, error)
	listPostsFn     func(context.Context, string, int, int) ([]repository.ActivityItem, int64, error)
	listCommentsFn  func(context.Context, string, int, int) ([]repository.ActivityItem, int64, error)
	listFavoritesFn func(context.Context, uint, int, int) ([]repository.ActivityItem, int64, error)
}

func (s *profileRepoStub) Counts(ctx context.Context, studentID string, userID uint) (repository.ActivityCounts, error) {
	return s.countsFn(ctx, studentID, userID)
}
func (s *profileRepoStub) ListPosts(ctx context.Context, studentID string, limit, offset int) ([]repository.ActivityItem, int64, error) {
	return s.listPostsFn(ctx, studentID, limit, offset)
}
func (s *profileRepoStub) ListComments(ctx context.Context, studentID string, limit, offset int) ([]repository.ActivityItem, int64, error) {
	return s.listCommentsFn(ctx, studentID, limit, offset)
}
func (s *profileRepoStub) ListFavorites(ctx context.Context, userID uint, limit, offset int) ([]repository.ActivityItem, int64, error) {
	return s.listFavoritesFn(ctx, userID, limit, offset)
}

func noopProfileRepo() *profileRepoStub {
	empty := func() ([]repository.ActivityItem, int64, error) { return nil, 0, nil }
	return &profileRepoStub{
		countsFn: func(_ context.Context, _ string, _ uint) (repository.ActivityCounts, error) {
			return repository.ActivityCounts{}, nil
		},
		listPostsFn:     func(_ context.Context, _ string, _, _ int) ([]repository.ActivityItem, int64, error) { return empty() },
		listCommentsFn:  func(_ context.Context, _ string, _, _ int) ([]repository.ActivityItem, int64, error) { return empty() },
		listFavoritesFn: func(_ context.Context, _ uint, _, _ int) ([]repository.ActivityItem, int64, error) { return empty() },
	}
}

// mealRepoStub is a stub for repository.MealRepository.
type mealRepoStub struct {
	countDishesOnFn  func(context.Context, string) (int64, error)
	saveMenuFn       func(context.Context, string, []string) error
	listDishesFn     func(context.Context, string) ([]repository.MealDishRow, error)
	mealDishIDsOnFn  func(context.Context, string) (map[uint]bool, error)
	upsertFeedbackFn func(context.Context, []models.DishFeedback) error
	summaryFn        func(context.Context, string) ([]repository.DishSummaryRow, error)
	adminCommentsFn  func(context.Context, string, repository.AdminCommentFilter) ([]repository.AdminCommentRow, error)
}

func (s *mealRepoStub) CountDishesOn(ctx context.Context, date string) (int64, error) {
	return s.countDishesOnFn(ctx, date)
}
func (s *mealRepoStub) SaveMenu(ctx context.Context, date string, dishes []string) error {
	return s.saveMenuFn(ctx, date, dishes)
}
func (s *mealRepoStub) ListDishes(ctx context.Context, date string) ([]repository.MealDishRow, error) {
	return s.listDishesFn(ctx, date)
}
func (s *mealRepoStub) MealDishIDsOn(ctx context.Context, date string) (map[uint]bool, error) {
	return s.mealDishIDsOnFn(ctx, date)
}
func (s *mealRepoStub) UpsertFeedback(ctx context.Context, items []models.DishFeedback) error {
	return s.upsertFeedbackFn(ctx, items)
}
func (s *mealRepoStub) Summary(ctx context.Context, date string) ([]repository.DishSummaryRow, error) {
	return s.summaryFn(ctx, date)
}
func (s *mealRepoStub) AdminComments(ctx context.Context, date string, f repository.AdminCommentFilter) ([]repository.AdminCommentRow, error) {
	return s.adminCommentsFn(ctx, date, f)
}

func noopMealRepo() *mealRepoStub {
	return &mealRepoStub{
		countDishesOnFn:  func(_ context.Context, _ string) (int64, error) { return 1, nil },
		saveMenuFn:       func(_ context.Context, _ string, _ []string) error { return nil },
		listDishesFn:     func(_ context.Context, _ string) ([]repository.MealDishRow, error) { return nil, nil },
		mealDishIDsOnFn:  func(_ context.Context, _ string) (map[uint]bool, error) { return map[uint]bool{}, nil },
		upsertFeedbackFn: func(_ context.Context, _ []models.DishFeedback) error { return nil },
		summaryFn:        func(_ context.Context, _ string) ([]repository.DishSummaryRow, error) { return nil, nil },
		adminCommentsFn: func(_ context.Context, _ string, _ repository.AdminCommentFilter) ([]repository.AdminCommentRow, error) {
			return nil, nil
		},
	}
}

// mealSourceStub is a stub for MealSource.
type mealSourceStub struct {
	calls   int
	mealsFn func(context.Context, string, string) ([]neis.Meal, error)
}

func (s *mealSourceStub) Meals(ctx context.Context, from, to string) ([]neis.Meal, error) {
	s.calls++
	return s.mealsFn(ctx, from, to)
}

// timetableSourceStub is a stub for TimetableSource.
type timetableSourceStub struct {
	calls int
	dayFn func(context.Context, int, int, int) ([]comcigan.Lesson, error)
}

func (s *timetableSourceStub) SchoolCode() int { return 12345 }
func (s *timetableSourceStub) Day(ctx context.Context, grade, classNum, weekday int) ([]comcigan.Lesson, error) {
	s.calls++
	return s.dayFn(ctx, grade, classNum, weekday)
}

// objectStorageStub records stored and removed keys.
type objectStorageStub struct {
	mu      sync.Mutex
	put     map[string][]byte
	removed []string
	putErr  error
}

func newObjectStorageStub() *objectStorageStub {
	return &objectStorageStub{put: map[string][]byte{}}
}

func (s *objectStorageStub) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put[key] = data
	return "/uploads/" + key, nil
}

func (s *objectStorageStub) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, key)
	return nil
}

// recordingPublisher keeps every published board event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BoardEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.BoardEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func ptr[T any](v T) *T { return &v }
