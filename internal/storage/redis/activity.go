package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const activityKeyPrefix = "idle:activity:"

// ActivityStore keeps idle clocks in Redis so that every process behind the
// load balancer sees the same last-activity time. Keys carry a retention TTL
// no shorter than the refresh token lifetime so a record never disappears
// while its session could still be refreshed.
type ActivityStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewActivityStore(client *redis.Client, retention time.Duration) *ActivityStore {
	return &ActivityStore{client: client, retention: retention}
}

func (s *ActivityStore) SetLastActivity(ctx context.Context, userID string, at time.Time) error {
	err := s.client.Set(ctx, activityKey(userID), strconv.FormatInt(at.UnixMilli(), 10), s.retention).Err()
	if err != nil {
		return fmt.Errorf("set last activity: %w", err)
	}
	return nil
}

// GetLastActivity проверяет наличие записи об активности в Redis.
func (s *ActivityStore) GetLastActivity(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, activityKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, fmt.Errorf("get last activity: %w", err)
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last activity %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *ActivityStore) DeleteActivity(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, activityKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete last activity: %w", err)
	}
	return nil
}

func activityKey(userID string) string {
	return activityKeyPrefix + userID
}
