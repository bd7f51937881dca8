package park

import "time"

// Sample is one telemetry observation on a single channel. Stored samples are
// immutable; the delta filter only ever decides whether to append.
type Sample struct {
	QueueType        QueueType
	Status           Status
	WaitTime         *int
	ReturnStart      *time.Time
	ReturnEnd        *time.Time
	AllocationStatus *string
	Timestamp        time.Time
}

// ShouldPersist decides whether next is worth appending after prev. The park
// location matters only for the once-per-day guarantee: even a completely
// unchanged channel gets one sample per park-local calendar date.
func ShouldPersist(prev *Sample, next Sample, loc *time.Location) bool {
	if prev == nil {
		return true
	}
	if prev.Status != next.Status {
		return true
	}

	if next.QueueType.Windowed() {
		if !timePtrEqual(prev.ReturnStart, next.ReturnStart) || !timePtrEqual(prev.ReturnEnd, next.ReturnEnd) {
			return true
		}
		if !stringPtrEqual(prev.AllocationStatus, next.AllocationStatus) {
			return true
		}
	}

	if !intPtrEqual(prev.WaitTime, next.WaitTime) {
		return true
	}

	// Daily anchor: one sample per channel per park-local day, change or not.
	if LocalDate(prev.Timestamp, loc) != LocalDate(next.Timestamp, loc) {
		return true
	}

	return false
}

// Pointer comparisons treat nil and nil as equal; a provider omitting a field
// must never register as a delta against an earlier omission.

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
