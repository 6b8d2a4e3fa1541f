package auth

import (
	"context"
	"testing"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/repository"
	"schoolboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisSessionStore(rdb, time.Hour)
	ctx := context.Background()
	user := models.SafeUser{ID: 3, StudentID: "2025-0003", Name: "Carol", UserID: "carol"}

	id, err := store.Create(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user, *got)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id, err = store.Create(ctx, user)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDBSessionStore(t *testing.T) {
	db := testutil.NewTestDB(t)
	u := testutil.CreateUser(t, db, "dave", "2025-0004", "Dave")
	store := NewDBSessionStore(repository.NewSessionRepository(db), time.Hour)
	ctx := context.Background()

	user := models.SafeUser{ID: u.ID, StudentID: u.StudentID, Name: u.Name, UserID: u.UserID}
	id, err := store.Create(ctx, user)
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user, *got)

	store.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestContext(t *testing.T) {
	_, err := Anonymous().CurrentUser()
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, Anonymous().Authenticated())

	p := Principal{ID: 1, UserID: "a", Name: "A"}
	ctx := NewSessionContext(p, "sid-1")
	got, err := ctx.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "sid-1", ctx.SessionID())
	assert.Equal(t, SourceSession, ctx.Source())

	assert.Equal(t, SourceBearer, NewBearerContext(p).Source())
	assert.Equal(t, p, PrincipalFromUser(p.SafeUser()))
}
