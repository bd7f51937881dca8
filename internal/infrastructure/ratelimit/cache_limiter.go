package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

const keyPrefix = "ratelimit:"

// CacheLimiter implements ports.RateLimiter on any TTL-capable KV store.
// The stored value is the blocked-until instant; the TTL makes the lock
// self-expire even if nobody reads it again.
type CacheLimiter struct {
	cache ports.Cache
	now   func() time.Time
}

var _ ports.RateLimiter = (*CacheLimiter)(nil)

func NewCacheLimiter(cache ports.Cache) *CacheLimiter {
	return &CacheLimiter{cache: cache, now: time.Now}
}

func (l *CacheLimiter) CheckBlocked(ctx context.Context, source park.Source) (bool, time.Time, error) {
	if !source.Valid() {
		return false, time.Time{}, errors.New("unknown source")
	}

	value, found, err := l.cache.Get(ctx, keyPrefix+string(source))
	if err != nil {
		return false, time.Time{}, errs.Wrap(err, "read rate-limit lock")
	}
	if !found {
		return false, time.Time{}, nil
	}

	until, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		// A corrupt lock value must not wedge the provider forever.
		_ = l.cache.Delete(ctx, keyPrefix+string(source))
		return false, time.Time{}, nil
	}

	if l.now().Before(until) {
		return true, until, nil
	}
	return false, time.Time{}, nil
}

func (l *CacheLimiter) RecordBlock(ctx context.Context, source park.Source, d time.Duration) error {
	if !source.Valid() {
		return errors.New("unknown source")
	}
	if d <= 0 {
		return nil
	}

	until := l.now().Add(d).UTC()
	if err := l.cache.Set(ctx, keyPrefix+string(source), until.Format(time.RFC3339Nano), d); err != nil {
		return errs.Wrap(err, "write rate-limit lock")
	}
	return nil
}
