// Package park holds the pure reconciliation rules for canonical theme-park
// entities: name normalization, duplicate matching, merge-winner scoring,
// open/closed status decisions and telemetry delta filtering. Nothing in this
// package touches a database or the network.
package park

// EntityKind identifies a canonical record type.
type EntityKind string

const (
	KindPark       EntityKind = "park"
	KindAttraction EntityKind = "attraction"
	KindShow       EntityKind = "show"
	KindRestaurant EntityKind = "restaurant"
)

// Source identifies an upstream provider.
type Source string

const (
	SourceQueueTimes     Source = "queue-times"
	SourceWartezeiten    Source = "wartezeiten"
	SourceThemeparksWiki Source = "themeparks-wiki"
)

// AuthoritativeSource is the provider whose identifiers take precedence when
// reconciling split-brain duplicates.
const AuthoritativeSource = SourceThemeparksWiki

// Sources lists all known providers in sync order.
var Sources = []Source{SourceQueueTimes, SourceWartezeiten, SourceThemeparksWiki}

func (s Source) Valid() bool {
	switch s {
	case SourceQueueTimes, SourceWartezeiten, SourceThemeparksWiki:
		return true
	}
	return false
}

// Status is the raw operating state reported on a telemetry channel.
type Status string

const (
	StatusOperating     Status = "OPERATING"
	StatusClosed        Status = "CLOSED"
	StatusDown          Status = "DOWN"
	StatusRefurbishment Status = "REFURBISHMENT"
)

// QueueType is a telemetry channel kind. An entity can report on several
// channels at once (standby queue, single rider, virtual queue slots).
type QueueType string

const (
	QueueStandby        QueueType = "STANDBY"
	QueueSingleRider    QueueType = "SINGLE_RIDER"
	QueueVirtual        QueueType = "VIRTUAL_QUEUE"
	QueuePaidReturnTime QueueType = "PAID_RETURN_TIME"
	QueueShowtimes      QueueType = "SHOWTIMES"
)

// Windowed reports whether the channel carries a return-time window instead
// of a scalar wait metric.
func (q QueueType) Windowed() bool {
	return q == QueueVirtual || q == QueuePaidReturnTime
}

// ScheduleType classifies a schedule entry for one park-local calendar date.
type ScheduleType string

const (
	ScheduleOperating     ScheduleType = "OPERATING"
	ScheduleExtraHours    ScheduleType = "EXTRA_HOURS"
	ScheduleTicketedEvent ScheduleType = "TICKETED_EVENT"
	ScheduleInfo          ScheduleType = "INFO"
	ScheduleMaintenance   ScheduleType = "MAINTENANCE"
	ScheduleClosed        ScheduleType = "CLOSED"
)
