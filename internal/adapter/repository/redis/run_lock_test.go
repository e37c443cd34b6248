package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/domain"
)

func TestRunLocker_AcquireAndRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	locker := NewRunLocker(client, zerolog.Nop())
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "sync:42", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !mr.Exists("lock:sync:42") {
		t.Fatalf("expected lock key to exist")
	}
	if ttl := mr.TTL("lock:sync:42"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	if _, err := locker.Acquire(ctx, "sync:42", time.Minute); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists("lock:sync:42") {
		t.Fatalf("expected lock key to be removed")
	}

	lock, err = locker.Acquire(ctx, "sync:42", time.Minute)
	if err != nil {
		t.Fatalf("expected lock to be free after release, got %v", err)
	}
	_ = lock.Release(ctx)
}

func TestRunLocker_CompaniesDoNotContend(t *testing.T) {
	client, _ := newTestRedisClient(t)
	defer client.Close()

	locker := NewRunLocker(client, zerolog.Nop())
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "sync:1", time.Minute); err != nil {
		t.Fatalf("acquire 1 failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "sync:2", time.Minute); err != nil {
		t.Fatalf("acquire 2 failed: %v", err)
	}
}

func TestRunLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	locker := NewRunLocker(client, zerolog.Nop())
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "sync:42", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// The first holder overran its TTL and a second run took the lock.
	mr.FastForward(2 * time.Second)
	if _, err := locker.Acquire(ctx, "sync:42", time.Minute); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release failed: %v", err)
	}
	if !mr.Exists("lock:sync:42") {
		t.Fatalf("stale release must not remove the new holder's lock")
	}
}

func TestRunLocker_ExtendOutlivesTTL(t *testing.T) {
	client, mr := newTestRedisClient(t)

	locker := NewRunLocker(client, zerolog.Nop())
	ctx := context.Background()
	ttl := 10 * time.Minute

	lock, err := locker.Acquire(ctx, "sync:42", ttl)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// The holder extends every ttl/3 while a long run is still reconciling.
	for range 4 {
		mr.FastForward(ttl / 3)
		if err := lock.Extend(ctx, ttl); err != nil {
			t.Fatalf("extend failed: %v", err)
		}
	}

	if _, err := locker.Acquire(ctx, "sync:42", ttl); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Fatalf("second run acquired an extended lock: %v", err)
	}
	if got := mr.TTL("lock:sync:42"); got != ttl {
		t.Fatalf("expected ttl reset to %s, got %s", ttl, got)
	}
}

func TestRunLocker_ExtendAfterTakeover(t *testing.T) {
	client, mr := newTestRedisClient(t)

	locker := NewRunLocker(client, zerolog.Nop())
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "sync:42", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	mr.FastForward(2 * time.Second)
	if err := stale.Extend(ctx, time.Minute); !errors.Is(err, domain.ErrLockLost) {
		t.Fatalf("expected ErrLockLost on expired lock, got %v", err)
	}

	if _, err := locker.Acquire(ctx, "sync:42", time.Minute); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if err := stale.Extend(ctx, time.Minute); !errors.Is(err, domain.ErrLockLost) {
		t.Fatalf("expected ErrLockLost on foreign lock, got %v", err)
	}
	if got := mr.TTL("lock:sync:42"); got != time.Minute {
		t.Fatalf("foreign lock ttl changed to %s", got)
	}
}

func TestRunLocker_RedisDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	locker := NewRunLocker(client, zerolog.Nop())
	_, err := locker.Acquire(context.Background(), "sync:42", time.Minute)
	if err == nil || errors.Is(err, domain.ErrSyncInProgress) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
