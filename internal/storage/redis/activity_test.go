package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestActivityStoreRoundTrip(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewActivityStore(rdb, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.GetLastActivity(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected no record, ok=%v err=%v", ok, err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SetLastActivity(ctx, "u1", at); err != nil {
		t.Fatalf("SetLastActivity: %v", err)
	}

	got, ok, err := store.GetLastActivity(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("GetLastActivity: ok=%v err=%v", ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("expected %s, got %s", at, got)
	}

	if err := store.DeleteActivity(ctx, "u1"); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}
	if _, ok, _ := store.GetLastActivity(ctx, "u1"); ok {
		t.Fatalf("expected record to be gone after delete")
	}
}

func TestActivityStoreRetentionTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewActivityStore(rdb, 10*time.Minute)
	ctx := context.Background()

	if err := store.SetLastActivity(ctx, "u2", time.Now()); err != nil {
		t.Fatalf("SetLastActivity: %v", err)
	}
	if ttl := mr.TTL(activityKey("u2")); ttl != 10*time.Minute {
		t.Fatalf("expected ttl 10m, got %s", ttl)
	}

	mr.FastForward(11 * time.Minute)
	if _, ok, _ := store.GetLastActivity(ctx, "u2"); ok {
		t.Fatalf("expected record to expire with its retention ttl")
	}
}

func TestActivityStoreCorruptValue(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewActivityStore(rdb, time.Hour)

	if err := mr.Set(activityKey("u3"), "not-a-number"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.GetLastActivity(context.Background(), "u3"); err == nil {
		t.Fatalf("expected parse error for corrupt value")
	}
}
