package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if _, err := NewClient(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestLock_OwnerID_Unique(t *testing.T) {
	_, client := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if lock1.OwnerID() == "" {
		t.Error("expected non-empty owner ID")
	}
	if lock1.OwnerID() == lock2.OwnerID() {
		t.Errorf("expected unique owner IDs, got same: %s", lock1.OwnerID())
	}
}

func TestLock_Acquire_AlreadyHeld(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	acquired, err := lock1.Acquire(ctx, "document:c7:d1", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	acquired, err = lock2.Acquire(ctx, "document:c7:d1", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second acquire to fail while held")
	}

	// Other documents are independent
	acquired, _ = lock2.Acquire(ctx, "document:c70:d1", 10*time.Second)
	if !acquired {
		t.Error("expected lock on a different document to succeed")
	}

	if got, _ := mr.Get(lockPrefix + "document:c7:d1"); got != lock1.OwnerID() {
		t.Errorf("expected key to hold owner %q, got %q", lock1.OwnerID(), got)
	}
}

func TestLock_Release(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	_, _ = lock1.Acquire(ctx, "document:c:d", 10*time.Second)

	// A non-owner release leaves the lock in place
	if err := lock2.Release(ctx, "document:c:d"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(lockPrefix + "document:c:d") {
		t.Fatal("expected lock to survive release by non-owner")
	}

	if err := lock1.Release(ctx, "document:c:d"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(lockPrefix + "document:c:d") {
		t.Error("expected lock to be released by owner")
	}

	// Releasing a lock nobody holds is fine
	if err := lock1.Release(ctx, "document:c:d"); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestLock_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	_, _ = lock1.Acquire(ctx, "document:c:d", 5*time.Second)
	mr.FastForward(6 * time.Second)

	acquired, err := lock2.Acquire(ctx, "document:c:d", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected acquire to succeed after TTL expiry")
	}

	// The stale owner must not release the new holder's lock
	_ = lock1.Release(ctx, "document:c:d")
	if !mr.Exists(lockPrefix + "document:c:d") {
		t.Error("expected new holder's lock to remain")
	}
}

func TestLock_Ping(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected error after server shutdown")
	}
}
