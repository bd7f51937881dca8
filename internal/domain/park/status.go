package park

import "time"

// ParkStatus is the consolidated answer to "is this open right now".
type ParkStatus string

const (
	ParkOperating ParkStatus = "OPERATING"
	ParkClosed    ParkStatus = "CLOSED"
)

// ScheduleWindow is the absolute opening interval of one OPERATING schedule
// entry. Instants are UTC regardless of the park's timezone.
type ScheduleWindow struct {
	Opening time.Time
	Closing time.Time
}

// ScheduleStatus is the tier-1 decision: when a schedule entry exists for
// today it is authoritative, telemetry is never consulted.
func ScheduleStatus(now time.Time, w ScheduleWindow) ParkStatus {
	if !now.Before(w.Opening) && now.Before(w.Closing) {
		return ParkOperating
	}
	return ParkClosed
}

// LocalDate returns the calendar date of now in the given location, formatted
// the way schedule entries store dates. "Today" is always computed in the
// park's own timezone, never in UTC.
func LocalDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

// ChannelObservation is the latest telemetry sample of one child channel,
// used by the tier-2 fallback.
type ChannelObservation struct {
	Status     Status
	WaitTime   *int
	ObservedAt time.Time
}

// FallbackStatus is the tier-2 decision, used only when no schedule entry
// exists for today. Observations older than window are ignored; with nothing
// recent the safe answer is CLOSED. Otherwise the park counts as operating
// when at least ratio of the recent channels are OPERATING with a positive
// wait metric. The ratio rule is the canonical one; an older any-channel rule
// was retired because the two disagreed on sparsely-instrumented parks.
func FallbackStatus(obs []ChannelObservation, now time.Time, window time.Duration, ratio float64) ParkStatus {
	recent := 0
	operating := 0
	for _, o := range obs {
		if o.ObservedAt.IsZero() || now.Sub(o.ObservedAt) > window {
			continue
		}
		recent++
		if o.Status == StatusOperating && o.WaitTime != nil && *o.WaitTime > 0 {
			operating++
		}
	}

	if recent == 0 {
		return ParkClosed
	}
	if float64(operating)/float64(recent) >= ratio {
		return ParkOperating
	}
	return ParkClosed
}
