package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/repository"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCookieName is the cookie that carries the session id.
const SessionCookieName = "sid"

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists server-side login sessions.
type SessionStore interface {
	Create(ctx context.Context, user models.SafeUser) (string, error)
	Get(ctx context.Context, id string) (*models.SafeUser, error)
	Delete(ctx context.Context, id string) error
}

func newSessionID() string {
	return uuid.NewString()
}

// RedisSessionStore keeps sessions as JSON values with a TTL.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore returns a Redis-backed store.
func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func redisSessionKey(id string) string {
	return "session:" + id
}

func (s *RedisSessionStore) Create(ctx context.Context, user models.SafeUser) (string, error) {
	payload, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	id := newSessionID()
	if err := s.rdb.Set(ctx, redisSessionKey(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return id, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.SafeUser, error) {
	raw, err := s.rdb.Get(ctx, redisSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var user models.SafeUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &user, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, redisSessionKey(id)).Err()
}

// DBSessionStore keeps sessions in the sessions table. Expired rows are
// ignored on read and removed by the purge job.
type DBSessionStore struct {
	repo repository.SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewDBSessionStore returns a database-backed store.
func NewDBSessionStore(repo repository.SessionRepository, ttl time.Duration) *DBSessionStore {
	return &DBSessionStore{repo: repo, ttl: ttl, now: time.Now}
}

func (s *DBSessionStore) Create(ctx context.Context, user models.SafeUser) (string, error) {
	payload, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	now := s.now().UTC()
	session := &models.Session{
		ID:        newSessionID(),
		UserID:    user.ID,
		Data:      string(payload),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return session.ID, nil
}

func (s *DBSessionStore) Get(ctx context.Context, id string) (*models.SafeUser, error) {
	session, err := s.repo.GetActive(ctx, id, s.now().UTC())
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var user models.SafeUser
	if err := json.Unmarshal([]byte(session.Data), &user); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &user, nil
}

func (s *DBSessionStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
