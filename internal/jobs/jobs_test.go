package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolboard/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDeleter struct {
	calls  int
	gotNow time.Time
	gotCtx context.Context
	err    error
}

func (s *stubDeleter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.calls++
	s.gotNow = now
	s.gotCtx = ctx
	return 3, s.err
}

func TestSessionPurgeJob_PassesClockAndRequestID(t *testing.T) {
	fixed := time.Date(2025, 3, 3, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))
	d := &stubDeleter{}
	job := NewSessionPurgeJob(d)
	job.now = func() time.Time { return fixed }

	job.Run()

	require.Equal(t, 1, d.calls)
	assert.True(t, d.gotNow.Equal(fixed))
	assert.Equal(t, time.UTC, d.gotNow.Location())
	rid, _ := d.gotCtx.Value(middleware.RequestIDKey).(string)
	assert.Contains(t, rid, "job-")
}

func TestSessionPurgeJob_ErrorIsSwallowed(t *testing.T) {
	d := &stubDeleter{err: errors.New("db down")}
	assert.NotPanics(t, NewSessionPurgeJob(d).Run)
	assert.Equal(t, 1, d.calls)
}

func TestManager_RegisterValidatesSpec(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(SessionPurgeSpec, NewSessionPurgeJob(&stubDeleter{})))
	assert.Equal(t, 1, m.Entries())

	assert.Error(t, m.Register("not a spec", NewSessionPurgeJob(&stubDeleter{})))

	m.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
}
