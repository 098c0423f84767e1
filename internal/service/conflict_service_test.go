package service

import (
	"context"
	"testing"
	"time"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
)

var day = time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func overlappingSnapshot() *conflict.Snapshot {
	return &conflict.Snapshot{
		EventID: "ev-1",
		Sessions: []model.Session{
			{ID: "sess-a", EventID: "ev-1", Title: "a", StartTime: at(9, 0), EndTime: at(10, 0), Active: true},
			{ID: "sess-b", EventID: "ev-1", Title: "b", StartTime: at(9, 30), EndTime: at(10, 30), Active: true},
		},
		Bookings: []model.ResourceBooking{
			{SessionID: "sess-a", ResourceID: "res-1", BookingStart: at(9, 0), BookingEnd: at(10, 0), Status: model.BookingConfirmed},
			{SessionID: "sess-b", ResourceID: "res-1", BookingStart: at(9, 30), BookingEnd: at(10, 30), Status: model.BookingConfirmed},
		},
	}
}

func TestDetectAllConflictsPersistsAndReturns(t *testing.T) {
	store := newFakeConflictStore()
	svc := NewConflictService(&fakeSchedule{snapshot: overlappingSnapshot()}, store, testLogger())

	got, err := svc.DetectAllConflicts(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("DetectAllConflicts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("stored %d conflicts, want 2 (time overlap + resource)", len(got))
	}
	for _, c := range got {
		if c.ID == "" || c.DetectedAt.IsZero() {
			t.Errorf("stored conflict missing identity: %+v", c)
		}
		if c.ResolutionStatus != model.ResolutionUnresolved || !c.IsActive {
			t.Errorf("stored conflict in wrong initial state: %+v", c)
		}
	}
}

func TestDetectAllConflictsIsIdempotent(t *testing.T) {
	store := newFakeConflictStore()
	svc := NewConflictService(&fakeSchedule{snapshot: overlappingSnapshot()}, store, testLogger())

	first, err := svc.DetectAllConflicts(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.DetectAllConflicts(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(second) != 0 {
		t.Fatalf("second run stored %d conflicts, want 0", len(second))
	}
	if len(store.conflicts) != len(first) {
		t.Fatalf("store holds %d rows, want %d", len(store.conflicts), len(first))
	}
}

func TestDetectAllConflictsAfterResolutionRedetects(t *testing.T) {
	store := newFakeConflictStore()
	svc := NewConflictService(&fakeSchedule{snapshot: overlappingSnapshot()}, store, testLogger())

	first, err := svc.DetectAllConflicts(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Resolving a conflict removes it from the duplicate set; if the data is
	// still inconsistent the next run flags it again.
	if err := store.SetResolved(context.Background(), first[0].ID, "ops", at(12, 0)); err != nil {
		t.Fatalf("SetResolved: %v", err)
	}

	second, err := svc.DetectAllConflicts(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("post-resolution run stored %d conflicts, want 1", len(second))
	}
	if second[0].Type != first[0].Type || second[0].PrimarySessionID != first[0].PrimarySessionID {
		t.Fatalf("re-detected conflict differs: %+v vs %+v", second[0], first[0])
	}
}

func TestDetectAllConflictsCleanScheduleIsEmptyNotError(t *testing.T) {
	snap := &conflict.Snapshot{
		EventID: "ev-1",
		Sessions: []model.Session{
			{ID: "sess-a", EventID: "ev-1", StartTime: at(9, 0), EndTime: at(10, 0), Active: true},
			{ID: "sess-b", EventID: "ev-1", StartTime: at(10, 0), EndTime: at(11, 0), Active: true},
		},
	}
	svc := NewConflictService(&fakeSchedule{snapshot: snap}, newFakeConflictStore(), testLogger())

	got, err := svc.DetectAllConflicts(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("clean schedule errored: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("clean schedule produced %d conflicts", len(got))
	}
}

func TestDetectAllConflictsRequiresEventID(t *testing.T) {
	svc := NewConflictService(&fakeSchedule{}, newFakeConflictStore(), testLogger())
	if _, err := svc.DetectAllConflicts(context.Background(), ""); err == nil {
		t.Fatal("expected an error for a missing event id")
	}
}
