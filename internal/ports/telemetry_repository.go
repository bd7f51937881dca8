package ports

import (
	"context"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
)

// QueueSample is one immutable telemetry row. "Current" state of a channel is
// the max-timestamp sample per (entity, queue type).
type QueueSample struct {
	ID               string
	EntityID         string
	QueueType        park.QueueType
	Status           park.Status
	WaitTime         *int
	ReturnStart      *time.Time
	ReturnEnd        *time.Time
	AllocationStatus *string
	Timestamp        time.Time
}

type TelemetryRepository interface {
	// LatestSample returns the newest sample for one (entity, channel).
	LatestSample(ctx context.Context, entityID string, qt park.QueueType) (QueueSample, bool, error)

	// LatestSamples returns, for every listed entity, the newest sample per
	// channel with Timestamp >= since. Used by the status fallback tier.
	LatestSamples(ctx context.Context, entityIDs []string, since time.Time) ([]QueueSample, error)

	AppendSample(ctx context.Context, s QueueSample) error

	// CountSamples counts rows owned by an entity, for merge bookkeeping.
	CountSamples(ctx context.Context, entityID string) (int64, error)

	// RepointSamples redirects every sample of one entity to another and
	// returns the number of moved rows. Row counts must be preserved
	// exactly; samples are never rewritten beyond the owner reference.
	RepointSamples(ctx context.Context, fromEntityID, toEntityID string) (int64, error)

	// LastSampleTime returns the newest sample timestamp across all
	// children of a park, feeding the recent-telemetry priority signal.
	LastSampleTime(ctx context.Context, entityIDs []string) (time.Time, bool, error)
}
