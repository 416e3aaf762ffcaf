// Package locks serializes writers of one recovery session across app
// instances.
//
// The session store is already safe on its own (unique day key plus a
// version compare-and-swap), so a lock only cuts down on retries when two
// clerks submit entries for the same meeting at the same time. When Redis
// is not configured a no-op Locker is used.
package locks

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrBusy is returned when the lock could not be obtained before the wait ran out.
var ErrBusy = errors.New("lock is held by another writer")

// Release gives a lock back. It is safe to call more than once.
type Release func()

// Locker obtains named locks.
type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

// Noop is a Locker that never blocks.
type Noop struct{}

func (Noop) Obtain(context.Context, string) (Release, error) { return func() {}, nil }

// Redis obtains locks through redislock.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

// Config configures a Redis locker.
type Config struct {
	TTL  time.Duration // how long a lock lives if never released
	Wait time.Duration // how long Obtain retries before giving up
}

// NewRedis wraps an existing go-redis client.
func NewRedis(rdb redis.UniversalClient, cfg Config, log *zap.Logger) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 3 * time.Second
	}
	return &Redis{client: redislock.New(rdb), ttl: cfg.TTL, wait: cfg.Wait, log: log}
}

// Obtain blocks, retrying every 50ms, until the lock is held or Wait elapses.
func (r *Redis) Obtain(ctx context.Context, key string) (Release, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	lock, err := r.client.Obtain(waitCtx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Use a fresh context: the request context may already be done.
		relCtx, relCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer relCancel()
		if err := lock.Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
