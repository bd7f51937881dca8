package repository

import (
	"context"
	"testing"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

func standbySample(id, entityID string, wait int, ts time.Time) ports.QueueSample {
	return ports.QueueSample{
		ID:        id,
		EntityID:  entityID,
		QueueType: park.QueueStandby,
		Status:    park.StatusOperating,
		WaitTime:  intRef(wait),
		Timestamp: ts,
	}
}

func TestLatestSamplePerChannel(t *testing.T) {
	repo := NewTelemetryRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)

	samples := []ports.QueueSample{
		standbySample("q1", "a1", 10, base),
		standbySample("q2", "a1", 25, base.Add(10*time.Minute)),
		{ID: "q3", EntityID: "a1", QueueType: park.QueueSingleRider, Status: park.StatusOperating, WaitTime: intRef(5), Timestamp: base.Add(5 * time.Minute)},
	}
	for _, s := range samples {
		if err := repo.AppendSample(ctx, s); err != nil {
			t.Fatalf("AppendSample(%s) error = %v", s.ID, err)
		}
	}

	latest, found, err := repo.LatestSample(ctx, "a1", park.QueueStandby)
	if err != nil {
		t.Fatalf("LatestSample() error = %v", err)
	}
	if !found || latest.ID != "q2" {
		t.Fatalf("LatestSample() = %+v, found=%v, want q2", latest, found)
	}

	if _, found, err := repo.LatestSample(ctx, "a1", park.QueueVirtual); err != nil || found {
		t.Fatalf("LatestSample(virtual) = found=%v, err=%v, want none", found, err)
	}
}

func TestLatestSamplesSinceWindow(t *testing.T) {
	repo := NewTelemetryRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)

	samples := []ports.QueueSample{
		standbySample("old", "a1", 10, base.Add(-2*time.Hour)),
		standbySample("fresh1", "a1", 20, base.Add(-10*time.Minute)),
		standbySample("fresh2", "a1", 30, base.Add(-5*time.Minute)),
		standbySample("other", "a2", 40, base.Add(-15*time.Minute)),
		standbySample("stranger", "b9", 50, base),
	}
	for _, s := range samples {
		if err := repo.AppendSample(ctx, s); err != nil {
			t.Fatalf("AppendSample(%s) error = %v", s.ID, err)
		}
	}

	got, err := repo.LatestSamples(ctx, []string{"a1", "a2"}, base.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("LatestSamples() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LatestSamples() = %d samples, want newest per channel of a1 and a2", len(got))
	}
	byEntity := map[string]ports.QueueSample{}
	for _, s := range got {
		byEntity[s.EntityID] = s
	}
	if byEntity["a1"].ID != "fresh2" || byEntity["a2"].ID != "other" {
		t.Fatalf("LatestSamples() = %+v", byEntity)
	}

	if got, err := repo.LatestSamples(ctx, nil, base); err != nil || got != nil {
		t.Fatalf("LatestSamples(no entities) = %v, err=%v, want nil", got, err)
	}
}

func TestRepointSamplesPreservesCount(t *testing.T) {
	repo := NewTelemetryRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		s := standbySample("q"+string(rune('1'+i)), "loser", 10+i, base.Add(time.Duration(i)*time.Minute))
		if err := repo.AppendSample(ctx, s); err != nil {
			t.Fatalf("AppendSample() error = %v", err)
		}
	}
	if err := repo.AppendSample(ctx, standbySample("w1", "winner", 5, base)); err != nil {
		t.Fatalf("AppendSample(winner) error = %v", err)
	}

	moved, err := repo.RepointSamples(ctx, "loser", "winner")
	if err != nil {
		t.Fatalf("RepointSamples() error = %v", err)
	}
	if moved != 4 {
		t.Fatalf("RepointSamples() moved = %d, want 4", moved)
	}

	winnerCount, err := repo.CountSamples(ctx, "winner")
	if err != nil {
		t.Fatalf("CountSamples(winner) error = %v", err)
	}
	loserCount, err := repo.CountSamples(ctx, "loser")
	if err != nil {
		t.Fatalf("CountSamples(loser) error = %v", err)
	}
	if winnerCount != 5 || loserCount != 0 {
		t.Fatalf("CountSamples() winner=%d loser=%d, rows must move not vanish", winnerCount, loserCount)
	}
}

func TestLastSampleTime(t *testing.T) {
	repo := NewTelemetryRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)

	if _, found, err := repo.LastSampleTime(ctx, []string{"a1"}); err != nil || found {
		t.Fatalf("LastSampleTime(empty table) = found=%v, err=%v", found, err)
	}

	if err := repo.AppendSample(ctx, standbySample("q1", "a1", 10, base)); err != nil {
		t.Fatalf("AppendSample() error = %v", err)
	}
	if err := repo.AppendSample(ctx, standbySample("q2", "a2", 10, base.Add(time.Hour))); err != nil {
		t.Fatalf("AppendSample() error = %v", err)
	}

	last, found, err := repo.LastSampleTime(ctx, []string{"a1", "a2"})
	if err != nil {
		t.Fatalf("LastSampleTime() error = %v", err)
	}
	if !found || !last.Equal(base.Add(time.Hour)) {
		t.Fatalf("LastSampleTime() = %v, found=%v", last, found)
	}

	if _, found, err := repo.LastSampleTime(ctx, nil); err != nil || found {
		t.Fatalf("LastSampleTime(no ids) = found=%v, err=%v", found, err)
	}
}
