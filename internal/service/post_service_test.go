package service

import (
	"context"
	"errors"
	"testing"

	"schoolboard/internal/events"
	"schoolboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postFixture struct {
	posts      *postRepoStub
	comments   *commentRepoStub
	reactions  *reactionRepoStub
	favorites  *favoriteRepoStub
	images     *imageRepoStub
	objects    *objectStorageStub
	publisher  *recordingPublisher
	recomputes int
}

func newPostFixture() *postFixture {
	f := &postFixture{
		posts:     noopPostRepo(),
		comments:  noopCommentRepo(),
		reactions: noopReactionRepo(),
		favorites: noopFavoriteRepo(),
		images:    noopImageRepo(),
		objects:   newObjectStorageStub(),
		publisher: &recordingPublisher{},
	}
	f.posts.recomputeBestFn = func(context.Context) error {
		f.recomputes++
		return nil
	}
	return f
}

func (f *postFixture) service() *PostService {
	return NewPostService(PostServiceDeps{
		Posts:     f.posts,
		Comments:  f.comments,
		Reactions: f.reactions,
		Favorites: f.favorites,
		Images:    f.images,
		Objects:   f.objects,
		Ranker:    NewBestRanker(f.posts),
		Publisher: f.publisher,
	})
}

func TestPostService_Create(t *testing.T) {
	t.Parallel()

	t.Run("missing field", func(t *testing.T) {
		f := newPostFixture()
		_, err := f.service().Create(context.Background(), CreatePostInput{Title: "t", Content: "c", Tag: "자유", Author: "kim"})
		assertValidationError(t, err)
		assert.Zero(t, f.recomputes)
		assert.Empty(t, f.publisher.types())
	})

	t.Run("whitespace only title", func(t *testing.T) {
		f := newPostFixture()
		_, err := f.service().Create(context.Background(), CreatePostInput{Title: "  ", Content: "c", Tag: "자유", Author: "kim", StudentID: "1"})
		assertValidationError(t, err)
	})

	t.Run("creates and ranks", func(t *testing.T) {
		f := newPostFixture()
		var stored *models.Post
		f.posts.createFn = func(_ context.Context, p *models.Post) error {
			p.ID = 42
			stored = p
			return nil
		}

		post, err := f.service().Create(context.Background(), CreatePostInput{
			Title: " 첫 글 ", Content: "내용", Tag: "자유", Author: "kim", StudentID: "2025-0001",
		})
		require.NoError(t, err)
		assert.Equal(t, uint(42), post.ID)
		assert.Equal(t, "첫 글", stored.Title)
		assert.Equal(t, 1, f.recomputes)
		assert.Equal(t, []string{events.TypePostCreated}, f.publisher.types())
	})
}

func TestPostService_Detail(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		f := newPostFixture()
		f.posts.getByIDFn = missingPost
		_, err := f.service().Detail(context.Background(), 9, 0)
		assertNotFoundError(t, err)
	})

	t.Run("anonymous viewer skips viewer state", func(t *testing.T) {
		f := newPostFixture()
		f.reactions.getFn = func(context.Context, uint, uint) (string, error) {
			return "", errors.New("should not be called")
		}
		detail, err := f.service().Detail(context.Background(), 1, 0)
		require.NoError(t, err)
		assert.Nil(t, detail.MyReaction)
		assert.False(t, detail.Favorited)
		assert.NotNil(t, detail.Thread)
		assert.NotNil(t, detail.Images)
	})

	t.Run("viewer reaction and favorite", func(t *testing.T) {
		f := newPostFixture()
		f.reactions.getFn = func(_ context.Context, userID, postID uint) (string, error) {
			assert.Equal(t, uint(7), userID)
			return models.ReactionLike, nil
		}
		f.favorites.isFavoritedFn = func(context.Context, uint, uint) (bool, error) { return true, nil }
		f.comments.listTreeFn = func(context.Context, uint) ([]models.CommentNode, error) {
			return []models.CommentNode{{Comment: models.Comment{ID: 1}}, {Comment: models.Comment{ID: 2}, Depth: 1}}, nil
		}

		detail, err := f.service().Detail(context.Background(), 1, 7)
		require.NoError(t, err)
		require.NotNil(t, detail.MyReaction)
		assert.Equal(t, models.ReactionLike, *detail.MyReaction)
		assert.True(t, detail.Favorited)
		assert.Len(t, detail.Thread, 2)
	})
}

func TestPostService_Delete(t *testing.T) {
	t.Parallel()

	owner := AuthorMeta{Name: "kim", StudentID: "2025-0001"}

	t.Run("missing post", func(t *testing.T) {
		f := newPostFixture()
		f.posts.getByIDFn = missingPost
		assertNotFoundError(t, f.service().Delete(context.Background(), 1, owner))
	})

	t.Run("missing meta", func(t *testing.T) {
		f := newPostFixture()
		assertUnauthorizedError(t, f.service().Delete(context.Background(), 1, AuthorMeta{Name: "kim"}))
	})

	t.Run("someone else", func(t *testing.T) {
		f := newPostFixture()
		deleted := false
		f.posts.deleteFn = func(context.Context, uint) error { deleted = true; return nil }
		assertForbiddenError(t, f.service().Delete(context.Background(), 1, AuthorMeta{Name: "lee", StudentID: "2025-0001"}))
		assert.False(t, deleted)
	})

	t.Run("owner removes rows and objects", func(t *testing.T) {
		f := newPostFixture()
		f.images.listByPostFn = func(context.Context, uint) ([]models.PostImage, error) {
			return []models.PostImage{{ObjectKey: "posts/1/a.webp"}, {ObjectKey: "posts/1/b.webp"}}, nil
		}
		var deletedID uint
		f.posts.deleteFn = func(_ context.Context, id uint) error { deletedID = id; return nil }

		require.NoError(t, f.service().Delete(context.Background(), 1, AuthorMeta{Name: " kim ", StudentID: "2025-0001"}))
		assert.Equal(t, uint(1), deletedID)
		assert.ElementsMatch(t, []string{"posts/1/a.webp", "posts/1/b.webp"}, f.objects.removed)
		assert.Equal(t, 1, f.recomputes)
		assert.Equal(t, []string{events.TypePostDeleted}, f.publisher.types())
	})
}

func TestBestRanker_SwallowsFailures(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.recomputeBestFn = func(context.Context) error { return errors.New("locked") }
	assert.NotPanics(t, func() { NewBestRanker(posts).Recompute(context.Background()) })

	var nilRanker *BestRanker
	assert.NotPanics(t, func() { nilRanker.Recompute(context.Background()) })
}
