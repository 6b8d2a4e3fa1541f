package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolboard/internal/observability"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	TimetableKeyPrefix = "timetable:%d:%d:%d:%s"
	MealWeekKeyPrefix  = "meals:week:%s:%s"
)

const (
	MealWeekTTL = 30 * time.Minute
)

// TimetableKey identifies a cached timetable day for one class.
func TimetableKey(schoolCode, grade, classNum int, date string) string {
	return fmt.Sprintf(TimetableKeyPrefix, schoolCode, grade, classNum, date)
}

// MealWeekKey identifies a cached week view.
func MealWeekKey(from, to string) string {
	return fmt.Sprintf(MealWeekKeyPrefix, from, to)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate dest,
// then stores dest with ttl. Redis read and write failures degrade to a fetch.
// namespace labels the hit/miss metric.
func Aside(ctx context.Context, namespace, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		observability.CacheLookups.WithLabelValues(namespace, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(namespace, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate removes key when a client is configured.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}
