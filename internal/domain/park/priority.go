package park

import "time"

// Weights are the merge-winner scoring constants. They are heuristic, so they
// live in configuration rather than being fixed here.
type Weights struct {
	Schedule      int
	Telemetry     int
	Authoritative int
}

// DefaultWeights returns the scoring defaults: schedule data dominates, fresh
// telemetry beats an authoritative-provider id.
func DefaultWeights() Weights {
	return Weights{Schedule: 10, Telemetry: 5, Authoritative: 1}
}

// RecordSignals summarizes the merge-relevant state of one canonical record.
type RecordSignals struct {
	HasScheduleData    bool
	LastTelemetryAt    time.Time
	HasAuthoritativeID bool
	CreatedAt          time.Time
}

// Score is pure and deterministic so merges driven by it are idempotent.
func (w Weights) Score(sig RecordSignals, now time.Time, recency time.Duration) int {
	score := 0
	if sig.HasScheduleData {
		score += w.Schedule
	}
	if !sig.LastTelemetryAt.IsZero() && now.Sub(sig.LastTelemetryAt) <= recency {
		score += w.Telemetry
	}
	if sig.HasAuthoritativeID {
		score += w.Authoritative
	}
	return score
}

// FirstWins reports whether a beats b. Ties go to the earlier-created record
// so the outcome never depends on evaluation order.
func (w Weights) FirstWins(a, b RecordSignals, now time.Time, recency time.Duration) bool {
	sa, sb := w.Score(a, now, recency), w.Score(b, now, recency)
	if sa != sb {
		return sa > sb
	}
	return !a.CreatedAt.After(b.CreatedAt)
}
