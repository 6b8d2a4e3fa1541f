package jobs

import (
	"context"
	"time"

	"schoolboard/internal/middleware"

	"github.com/google/uuid"
)

// SessionPurgeSpec runs the purge at the top of every hour.
const SessionPurgeSpec = "@hourly"

// ExpiredSessionDeleter removes sessions that expired before now.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionPurgeJob deletes expired database-backed sessions.
type SessionPurgeJob struct {
	sessions ExpiredSessionDeleter
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionPurgeJob builds the job around the session repository.
func NewSessionPurgeJob(sessions ExpiredSessionDeleter) *SessionPurgeJob {
	return &SessionPurgeJob{sessions: sessions, timeout: time.Minute, now: time.Now}
}

func (j *SessionPurgeJob) Name() string { return "session_purge" }

func (j *SessionPurgeJob) Run() {
	ctx, cancel := context.WithTimeout(
		context.WithValue(context.Background(), middleware.RequestIDKey, "job-"+uuid.NewString()),
		j.timeout)
	defer cancel()

	n, err := j.sessions.DeleteExpired(ctx, j.now().UTC())
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Expired session purge failed", "error", err)
		return
	}
	if n > 0 {
		middleware.Logger.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
}
