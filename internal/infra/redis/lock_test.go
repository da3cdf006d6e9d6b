package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestActivationLockAcquireAndRelease(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	locker, err := NewActivationLock(rdb)
	if err != nil {
		t.Fatalf("NewActivationLock() error = %v", err)
	}

	release, err := locker.Acquire(context.Background(), "webhook/clinic-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Held lock: a second acquire must block until the context expires.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "webhook/clinic-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() on held lock error = %v, want %v", err, context.DeadlineExceeded)
	}

	// Distinct keys do not contend.
	otherRelease, err := locker.Acquire(context.Background(), "sms/clinic-1")
	if err != nil {
		t.Fatalf("Acquire() other key error = %v", err)
	}
	otherRelease()

	release()

	release2, err := locker.Acquire(context.Background(), "webhook/clinic-1")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release2()
}

func TestActivationLockRequiresKey(t *testing.T) {
	t.Parallel()

	locker, err := NewActivationLock(newTestRedisClient(t))
	if err != nil {
		t.Fatalf("NewActivationLock() error = %v", err)
	}

	if _, err := locker.Acquire(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb
}
