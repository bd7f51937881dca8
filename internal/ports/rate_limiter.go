package ports

import (
	"context"
	"errors"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
)

// ErrProviderBlocked signals that a provider-wide rate-limit lock is active.
// Callers fail fast instead of issuing a request that would extend the block.
// The error is retryable: the next scheduled run rechecks the lock.
var ErrProviderBlocked = errors.New("upstream provider is rate limited")

// RateLimiter is the cross-process "blocked until" state shared by every sync
// worker that talks to the same upstream provider. There is deliberately no
// in-process fallback; the state must live in a shared store so independent
// processes observe each other's 429s.
type RateLimiter interface {
	// CheckBlocked reports whether the provider is currently locked and, if
	// so, until when.
	CheckBlocked(ctx context.Context, source park.Source) (blocked bool, until time.Time, err error)

	// RecordBlock locks the provider for the given duration, typically the
	// Retry-After a 429 response advertised.
	RecordBlock(ctx context.Context, source park.Source, d time.Duration) error
}
