package notifications

import (
	"context"
	"testing"
	"time"

	"schoolboard/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestBoardHub_PublishReachesEveryClient(t *testing.T) {
	hub := NewBoardHub()
	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	require.NoError(t, hub.Publish(context.Background(), events.NewBoardEvent(events.TypePostCreated, 9, nil)))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			assert.Contains(t, string(msg), `"type":"post_created"`)
			assert.Contains(t, string(msg), `"postId":9`)
		default:
			t.Fatal("expected a queued message")
		}
	}
}

func TestBoardHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := NewBoardHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, 0, hub.Count())

	// sending to an unregistered client must not panic
	c.TrySend([]byte("x"))
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewBoardHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		c.TrySend([]byte("m"))
	}
	assert.Len(t, c.Send, sendBuffer)
}

func TestBoardHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewBoardHub()
	_, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())

	_, err = hub.Register(2, nil)
	assert.ErrorIs(t, err, ErrHubFull)
}

func TestBoardHub_WiringThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewBoardHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.Publish(context.Background(), events.NewBoardEvent(events.TypeCommentCreated, 4, nil)))

	assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Contains(t, string(<-c.Send), "comment_created")
}
