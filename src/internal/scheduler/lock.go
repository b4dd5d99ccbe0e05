package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

// ErrLockHeld is returned by WithLock when another instance holds the key.
var ErrLockHeld = errors.New("lock held by another instance")

type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type LockOptions struct {
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:     5 * time.Minute,
		Tries:      1,
		RetryDelay: 200 * time.Millisecond,
	}
}

// DistributedLock serialises jobs across replicas with a redsync mutex.
type DistributedLock struct {
	rs   *redsync.Redsync
	opts LockOptions
}

func NewDistributedLock(client redis.UniversalClient, opts LockOptions) *DistributedLock {
	defaults := DefaultLockOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = defaults.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = defaults.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}
	return &DistributedLock{rs: redsync.New(goredis.NewPool(client)), opts: opts}
}

func (l *DistributedLock) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			logger.Warn("scheduler lock release failed", logger.Fields{"key": key, "error": fmt.Sprint(err)})
		}
	}()

	return fn(ctx)
}

// localLock runs fn directly. Used when no Redis is configured and only one
// instance runs the jobs.
type localLock struct{}

func (localLock) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
