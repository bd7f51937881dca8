package upstream

import (
	"context"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
)

// Normalized provider payloads. Every field a provider may omit is a pointer:
// absent stays absent, it is never coerced to a zero value. The sync pipeline
// decides what missing data means.

type ProviderPark struct {
	ExternalID string
	Name       string
	Timezone   *string
	Country    *string
	Latitude   *float64
	Longitude  *float64
}

type ProviderChild struct {
	ExternalID string
	Name       string
	Kind       park.EntityKind
}

// LiveEntry is one telemetry reading for one channel of one child entity.
type LiveEntry struct {
	ExternalID string
	// Kind is set when the provider types its live entries; empty means the
	// consumer has to find the entity across all collections.
	Kind             park.EntityKind
	QueueType        park.QueueType
	Status           *string
	WaitTime         *int
	ReturnStart      *time.Time
	ReturnEnd        *time.Time
	AllocationStatus *string
	LastUpdated      *time.Time
}

/// ProviderSchedule is one schedule row as the provider reports it: Date is
// the park-local calendar day, the instants are absolute.
type ProviderSchedule struct {
	Date        string
	Type        string
	OpeningTime *time.Time
	ClosingTime *time.Time
}

// Provider is one upstream source behind the rate-limited client. A provider
// that does not serve a payload kind returns an empty slice, not an error.
type Provider interface {
	Source() park.Source
	FetchParks(ctx context.Context) ([]ProviderPark, error)
	FetchChildren(ctx context.Context, parkExternalID string) ([]ProviderChild, error)
	FetchLive(ctx context.Context, parkExternalID string) ([]LiveEntry, error)
	FetchSchedule(ctx context.Context, parkExternalID string) ([]ProviderSchedule, error)
}
