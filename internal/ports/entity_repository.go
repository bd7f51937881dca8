package ports

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
)

var (
	ErrParkNotFound  = errors.New("park not found")
	ErrChildNotFound = errors.New("child entity not found")

	// ErrDuplicateKey is returned when an insert loses a unique-constraint
	// race. Callers re-fetch and convert the insert into an update.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Park is one canonical park record. The per-source external ids are
// convenience columns; EntityMapping rows are the audit trail.
type Park struct {
	ID               string
	Name             string
	Slug             string
	Timezone         string
	CountryCode      *string
	Latitude         *float64
	Longitude        *float64
	QueueTimesID     *int
	WartezeitenID    *string
	ThemeparksWikiID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ExternalID returns the park's convenience id for the given source, as a
// string, and whether it is set.
func (p Park) ExternalID(source park.Source) (string, bool) {
	switch source {
	case park.SourceQueueTimes:
		if p.QueueTimesID != nil {
			return strconv.Itoa(*p.QueueTimesID), true
		}
	case park.SourceWartezeiten:
		if p.WartezeitenID != nil {
			return *p.WartezeitenID, true
		}
	case park.SourceThemeparksWiki:
		if p.ThemeparksWikiID != nil {
			return *p.ThemeparksWikiID, true
		}
	}
	return "", false
}

// Child is one canonical child record (attraction, show or restaurant) under
// a park. Kind selects the backing table.
type Child struct {
	ID               string
	ParkID           string
	Kind             park.EntityKind
	Name             string
	Slug             string
	Latitude         *float64
	Longitude        *float64
	QueueTimesID     *int
	WartezeitenID    *string
	ThemeparksWikiID *string
	CreatedAt        time.Time
}

// ExternalID returns the child's convenience id for the given source, as a
// string, and whether it is set.
func (c Child) ExternalID(source park.Source) (string, bool) {
	switch source {
	case park.SourceQueueTimes:
		if c.QueueTimesID != nil {
			return strconv.Itoa(*c.QueueTimesID), true
		}
	case park.SourceWartezeiten:
		if c.WartezeitenID != nil {
			return *c.WartezeitenID, true
		}
	case park.SourceThemeparksWiki:
		if c.ThemeparksWikiID != nil {
			return *c.ThemeparksWikiID, true
		}
	}
	return "", false
}

// EntityMapping is the audit record linking a canonical entity to one source
// id, independent of the convenience columns on the entity itself.
type EntityMapping struct {
	ID         string
	EntityID   string
	EntityKind park.EntityKind
	Source     park.Source
	ExternalID string
	Confidence float64
	Method     string
	Verified   bool
	CreatedAt  time.Time
}

// Mapping methods.
const (
	MappingMethodExactID   = "exact-id"
	MappingMethodFuzzyName = "fuzzy-name"
	MappingMethodManual    = "manual"
)

// ChildKinds lists the child collections of a park, in merge order.
var ChildKinds = []park.EntityKind{park.KindAttraction, park.KindShow, park.KindRestaurant}

// EntityRepository is the canonical-entity store. All methods honor a
// transaction placed in context via WithTxContext.
type EntityRepository interface {
	ListParks(ctx context.Context) ([]Park, error)
	GetPark(ctx context.Context, id string) (Park, error)
	FindParkBySourceID(ctx context.Context, source park.Source, externalID string) (Park, bool, error)
	CreatePark(ctx context.Context, p Park) (Park, error)
	UpdatePark(ctx context.Context, p Park) error
	// DeletePark must only be called once the park is proven childless.
	DeletePark(ctx context.Context, id string) error

	// DuplicateParkGroups returns groups of parks sharing the same external
	// id on any single source: the split-brain signature.
	DuplicateParkGroups(ctx context.Context) ([][]Park, error)

	// GetChildByID searches all child collections for an entity id.
	GetChildByID(ctx context.Context, id string) (Child, bool, error)
	ListChildren(ctx context.Context, parkID string, kind park.EntityKind) ([]Child, error)
	FindChildBySlug(ctx context.Context, parkID string, kind park.EntityKind, slug string) (Child, bool, error)
	FindChildBySourceID(ctx context.Context, parkID string, kind park.EntityKind, source park.Source, externalID string) (Child, bool, error)
	CreateChild(ctx context.Context, c Child) (Child, error)
	UpdateChild(ctx context.Context, c Child) error
	DeleteChild(ctx context.Context, kind park.EntityKind, id string) error
	// CountChildren counts remaining children of a park across all kinds.
	CountChildren(ctx context.Context, parkID string) (int64, error)
	// RepointChildren moves every child of one kind to another park in a
	// single bulk update and returns the number of moved rows.
	RepointChildren(ctx context.Context, kind park.EntityKind, fromParkID, toParkID string) (int64, error)

	UpsertMapping(ctx context.Context, m EntityMapping) error
	ListMappings(ctx context.Context, entityID string) ([]EntityMapping, error)
	// RepointMappings redirects audit mappings from one entity to another.
	RepointMappings(ctx context.Context, fromEntityID, toEntityID string) (int64, error)
}
