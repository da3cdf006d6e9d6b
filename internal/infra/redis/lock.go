package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/clinicore/notify-engine/internal/lock"
)

const (
	defaultLockTTL = 10 * time.Second
	backoffStep    = 10 * time.Millisecond
	backoffMax     = 50 * time.Millisecond
)

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ lock.Locker = (*ActivationLock)(nil)

// ActivationLock is a distributed per-key lock backed by Redis SET NX. It
// serializes concurrent channel activations across instances.
type ActivationLock struct {
	client *goredis.Client
	ttl    time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewActivationLock(client *goredis.Client) (*ActivationLock, error) {
	return newActivationLock(client, defaultLockTTL, sleepWithContext)
}

func newActivationLock(
	client *goredis.Client,
	ttl time.Duration,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*ActivationLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &ActivationLock{
		client: client,
		ttl:    ttl,
		sleep:  sleepFn,
	}, nil
}

func (l *ActivationLock) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("activation lock is not initialized")
	}

	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return nil, fmt.Errorf("lock key is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	redisKey := "lock:activation:" + normalizedKey
	token := uuid.NewString()

	backoff := backoffStep
	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire activation lock: %w", err)
		}
		if acquired {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			}, nil
		}

		if err := l.sleep(ctx, backoff); err != nil {
			return nil, err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
