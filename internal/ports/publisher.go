package ports

import "context"

// Event subjects published by the engine.
const (
	SubjectEntityMerged    = "park.entity.merged"
	SubjectScheduleChanged = "park.schedule.changed"
	SubjectStatusChanged   = "park.status.changed"
)

// EventPublisher fans out engine events to downstream consumers (cache
// invalidation, websocket push, audit). Publishing is best effort: a failed
// publish is logged, never propagated into the transaction that caused it.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}
