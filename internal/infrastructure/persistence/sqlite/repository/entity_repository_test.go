package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

func TestParkLifecycle(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	created := testPark("p1", "Europa Park", "europa-park", now)
	created.QueueTimesID = intRef(51)
	created.WartezeitenID = strRef("europapark")

	if _, err := repo.CreatePark(ctx, created); err != nil {
		t.Fatalf("CreatePark() error = %v", err)
	}

	got, err := repo.GetPark(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPark() error = %v", err)
	}
	if got.Name != "Europa Park" || got.QueueTimesID == nil || *got.QueueTimesID != 51 {
		t.Fatalf("GetPark() = %+v", got)
	}

	found, ok, err := repo.FindParkBySourceID(ctx, park.SourceQueueTimes, "51")
	if err != nil {
		t.Fatalf("FindParkBySourceID() error = %v", err)
	}
	if !ok || found.ID != "p1" {
		t.Fatalf("FindParkBySourceID() = %+v, found=%v", found, ok)
	}

	if _, ok, _ := repo.FindParkBySourceID(ctx, park.SourceWartezeiten, "unknown"); ok {
		t.Fatalf("FindParkBySourceID() expected no match for unknown id")
	}

	got.Timezone = "Europe/Paris"
	got.ThemeparksWikiID = strRef("wiki-uuid-1")
	if err := repo.UpdatePark(ctx, got); err != nil {
		t.Fatalf("UpdatePark() error = %v", err)
	}
	updated, err := repo.GetPark(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPark() after update error = %v", err)
	}
	if updated.Timezone != "Europe/Paris" || updated.ThemeparksWikiID == nil {
		t.Fatalf("UpdatePark() not persisted: %+v", updated)
	}

	if err := repo.DeletePark(ctx, "p1"); err != nil {
		t.Fatalf("DeletePark() error = %v", err)
	}
	if _, err := repo.GetPark(ctx, "p1"); !errors.Is(err, ports.ErrParkNotFound) {
		t.Fatalf("GetPark() after delete error = %v, want ErrParkNotFound", err)
	}
}

func TestUpdateMissingParkReturnsNotFound(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))

	err := repo.UpdatePark(context.Background(), testPark("ghost", "Ghost", "ghost", time.Now()))
	if !errors.Is(err, ports.ErrParkNotFound) {
		t.Fatalf("UpdatePark() error = %v, want ErrParkNotFound", err)
	}
}

func TestCreateParkDuplicateSlug(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.CreatePark(ctx, testPark("p1", "Magic Kingdom", "magic-kingdom", now)); err != nil {
		t.Fatalf("CreatePark() error = %v", err)
	}

	_, err := repo.CreatePark(ctx, testPark("p2", "Magic Kingdom", "magic-kingdom", now))
	if !errors.Is(err, ports.ErrDuplicateKey) {
		t.Fatalf("CreatePark() duplicate slug error = %v, want ErrDuplicateKey", err)
	}
}

func TestChildSlugUniquePerParkAndKind(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"p1", "p2"} {
		if _, err := repo.CreatePark(ctx, testPark(id, "Park "+id, "park-"+id, now)); err != nil {
			t.Fatalf("CreatePark(%s) error = %v", id, err)
		}
	}

	attraction := ports.Child{ID: "a1", ParkID: "p1", Kind: park.KindAttraction, Name: "Silver Star", Slug: "silver-star", CreatedAt: now}
	if _, err := repo.CreateChild(ctx, attraction); err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	dup := attraction
	dup.ID = "a2"
	if _, err := repo.CreateChild(ctx, dup); !errors.Is(err, ports.ErrDuplicateKey) {
		t.Fatalf("CreateChild() same park+kind+slug error = %v, want ErrDuplicateKey", err)
	}

	otherPark := attraction
	otherPark.ID = "a3"
	otherPark.ParkID = "p2"
	if _, err := repo.CreateChild(ctx, otherPark); err != nil {
		t.Fatalf("CreateChild() same slug other park error = %v", err)
	}

	otherKind := attraction
	otherKind.ID = "s1"
	otherKind.Kind = park.KindShow
	if _, err := repo.CreateChild(ctx, otherKind); err != nil {
		t.Fatalf("CreateChild() same slug other kind error = %v", err)
	}
}

func TestGetChildByIDScansAllKinds(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.CreatePark(ctx, testPark("p1", "Park", "park", now)); err != nil {
		t.Fatalf("CreatePark() error = %v", err)
	}
	if _, err := repo.CreateChild(ctx, ports.Child{ID: "r1", ParkID: "p1", Kind: park.KindRestaurant, Name: "Foodloop", Slug: "foodloop", CreatedAt: now}); err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	child, found, err := repo.GetChildByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetChildByID() error = %v", err)
	}
	if !found || child.Kind != park.KindRestaurant {
		t.Fatalf("GetChildByID() = %+v, found=%v", child, found)
	}

	if _, found, err := repo.GetChildByID(ctx, "missing"); err != nil || found {
		t.Fatalf("GetChildByID(missing) = found=%v, err=%v", found, err)
	}
}

func TestFindChildBySourceID(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.CreatePark(ctx, testPark("p1", "Park", "park", now)); err != nil {
		t.Fatalf("CreatePark() error = %v", err)
	}
	child := ports.Child{ID: "a1", ParkID: "p1", Kind: park.KindAttraction, Name: "Blue Fire", Slug: "blue-fire", QueueTimesID: intRef(712), CreatedAt: now}
	if _, err := repo.CreateChild(ctx, child); err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}

	got, found, err := repo.FindChildBySourceID(ctx, "p1", park.KindAttraction, park.SourceQueueTimes, "712")
	if err != nil {
		t.Fatalf("FindChildBySourceID() error = %v", err)
	}
	if !found || got.ID != "a1" {
		t.Fatalf("FindChildBySourceID() = %+v, found=%v", got, found)
	}
}

func TestRepointChildrenAndCount(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"winner", "loser"} {
		if _, err := repo.CreatePark(ctx, testPark(id, "Park "+id, "park-"+id, now)); err != nil {
			t.Fatalf("CreatePark(%s) error = %v", id, err)
		}
	}
	for i, slug := range []string{"ride-a", "ride-b", "ride-c"} {
		child := ports.Child{ID: slug, ParkID: "loser", Kind: park.KindAttraction, Name: slug, Slug: slug, CreatedAt: now.Add(time.Duration(i) * time.Second)}
		if _, err := repo.CreateChild(ctx, child); err != nil {
			t.Fatalf("CreateChild(%s) error = %v", slug, err)
		}
	}

	moved, err := repo.RepointChildren(ctx, park.KindAttraction, "loser", "winner")
	if err != nil {
		t.Fatalf("RepointChildren() error = %v", err)
	}
	if moved != 3 {
		t.Fatalf("RepointChildren() moved = %d, want 3", moved)
	}

	loserCount, err := repo.CountChildren(ctx, "loser")
	if err != nil {
		t.Fatalf("CountChildren(loser) error = %v", err)
	}
	winnerCount, err := repo.CountChildren(ctx, "winner")
	if err != nil {
		t.Fatalf("CountChildren(winner) error = %v", err)
	}
	if loserCount != 0 || winnerCount != 3 {
		t.Fatalf("CountChildren() loser=%d winner=%d", loserCount, winnerCount)
	}
}

func TestDuplicateParkGroups(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	older := testPark("older", "Phantasialand", "phantasialand", base)
	older.QueueTimesID = intRef(10)
	newer := testPark("newer", "Phantasialand Brühl", "phantasialand-bruhl", base.Add(time.Hour))
	newer.QueueTimesID = intRef(10)
	unique := testPark("unique", "Europa Park", "europa-park", base)
	unique.QueueTimesID = intRef(51)
	unlinked := testPark("unlinked", "Liseberg", "liseberg", base)

	for _, p := range []ports.Park{older, newer, unique, unlinked} {
		if _, err := repo.CreatePark(ctx, p); err != nil {
			t.Fatalf("CreatePark(%s) error = %v", p.ID, err)
		}
	}

	groups, err := repo.DuplicateParkGroups(ctx)
	if err != nil {
		t.Fatalf("DuplicateParkGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("DuplicateParkGroups() = %d groups, want 1", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Fatalf("DuplicateParkGroups() group size = %d, want 2", len(groups[0]))
	}
	if groups[0][0].ID != "older" || groups[0][1].ID != "newer" {
		t.Fatalf("DuplicateParkGroups() order = %s, %s, want oldest first", groups[0][0].ID, groups[0][1].ID)
	}
}

func TestUpsertMappingRebinds(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	first := ports.EntityMapping{
		ID:         "m1",
		EntityID:   "p1",
		EntityKind: park.KindPark,
		Source:     park.SourceQueueTimes,
		ExternalID: "51",
		Confidence: 1,
		Method:     ports.MappingMethodExactID,
		Verified:   true,
		CreatedAt:  now,
	}
	if err := repo.UpsertMapping(ctx, first); err != nil {
		t.Fatalf("UpsertMapping() error = %v", err)
	}

	rebound := first
	rebound.ID = "m2"
	rebound.EntityID = "p2"
	rebound.Confidence = 0.93
	rebound.Method = ports.MappingMethodFuzzyName
	rebound.Verified = false
	if err := repo.UpsertMapping(ctx, rebound); err != nil {
		t.Fatalf("UpsertMapping(rebind) error = %v", err)
	}

	if mappings, err := repo.ListMappings(ctx, "p1"); err != nil || len(mappings) != 0 {
		t.Fatalf("ListMappings(p1) = %d mappings, err=%v, want 0", len(mappings), err)
	}

	mappings, err := repo.ListMappings(ctx, "p2")
	if err != nil {
		t.Fatalf("ListMappings(p2) error = %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("ListMappings(p2) = %d mappings, want 1", len(mappings))
	}
	if mappings[0].Method != ports.MappingMethodFuzzyName || mappings[0].Confidence != 0.93 {
		t.Fatalf("ListMappings(p2)[0] = %+v", mappings[0])
	}
}

func TestRepointMappings(t *testing.T) {
	repo := NewEntityRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i, source := range []park.Source{park.SourceQueueTimes, park.SourceWartezeiten} {
		m := ports.EntityMapping{
			ID:         "m" + string(rune('1'+i)),
			EntityID:   "loser",
			EntityKind: park.KindPark,
			Source:     source,
			ExternalID: "x",
			Confidence: 1,
			Method:     ports.MappingMethodExactID,
			CreatedAt:  now,
		}
		if err := repo.UpsertMapping(ctx, m); err != nil {
			t.Fatalf("UpsertMapping() error = %v", err)
		}
	}

	moved, err := repo.RepointMappings(ctx, "loser", "winner")
	if err != nil {
		t.Fatalf("RepointMappings() error = %v", err)
	}
	if moved != 2 {
		t.Fatalf("RepointMappings() moved = %d, want 2", moved)
	}
}
