package conflict

import (
	"testing"
	"time"

	"github.com/eventra-labs/eventra/internal/model"
)

func strptr(s string) *string { return &s }

func analyticsFixture() []model.ScheduleConflict {
	detectedEarly := at(8, 0)
	detectedLate := at(9, 0)
	resolvedAt := detectedEarly.Add(4 * time.Hour)
	return []model.ScheduleConflict{
		{
			ID: "c-1", EventID: "ev-1", Type: model.ConflictTimeOverlap,
			Severity: model.SeverityError, PrimarySessionID: "sess-a",
			SecondarySessionID: strptr("sess-b"),
			ResolutionStatus:   model.ResolutionUnresolved,
			DetectedAt:         detectedLate, IsActive: true,
		},
		{
			ID: "c-2", EventID: "ev-1", Type: model.ConflictResource,
			Severity: model.SeverityError, PrimarySessionID: "sess-a",
			SecondarySessionID: strptr("sess-b"), ResourceID: strptr("res-1"),
			ResolutionStatus: model.ResolutionUnresolved,
			DetectedAt:       detectedEarly, IsActive: true,
		},
		{
			ID: "c-3", EventID: "ev-1", Type: model.ConflictCapacityExceeded,
			Severity: model.SeverityError, PrimarySessionID: "sess-c",
			CanAutoResolve: true, ResolutionStatus: model.ResolutionResolved,
			DetectedAt: detectedEarly, ResolvedAt: &resolvedAt,
			ResolvedBy: strptr("system"), IsActive: true,
		},
		{
			ID: "c-4", EventID: "ev-1", Type: model.ConflictUser,
			Severity: model.SeverityWarning, PrimarySessionID: "sess-a",
			SecondarySessionID: strptr("sess-b"), RegistrationID: strptr("reg-1"),
			CanAutoResolve: true, ResolutionStatus: model.ResolutionAcknowledged,
			DetectedAt: detectedLate, IsActive: true,
		},
		{
			// Retired row: ignored everywhere.
			ID: "c-5", EventID: "ev-1", Type: model.ConflictTimeOverlap,
			Severity: model.SeverityCritical, PrimarySessionID: "sess-z",
			ResolutionStatus: model.ResolutionUnresolved,
			DetectedAt:       at(6, 0), IsActive: false,
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("ev-1", analyticsFixture())

	if s.Total != 4 {
		t.Errorf("total = %d, want 4 (inactive rows excluded)", s.Total)
	}
	if s.ByType[model.ConflictTimeOverlap] != 1 || s.ByType[model.ConflictResource] != 1 ||
		s.ByType[model.ConflictCapacityExceeded] != 1 || s.ByType[model.ConflictUser] != 1 {
		t.Errorf("by type = %v", s.ByType)
	}
	if s.BySeverity[model.SeverityError] != 3 || s.BySeverity[model.SeverityWarning] != 1 {
		t.Errorf("by severity = %v", s.BySeverity)
	}
	if s.Unresolved != 3 {
		t.Errorf("unresolved = %d, want 3 (acknowledged still counts)", s.Unresolved)
	}
	if s.Critical != 0 {
		t.Errorf("critical = %d, want 0 (the critical row is inactive)", s.Critical)
	}
	if s.AutoResolvable != 1 {
		t.Errorf("auto-resolvable unresolved = %d, want 1", s.AutoResolvable)
	}
	if s.OldestUnresolvedAt == nil || !s.OldestUnresolvedAt.Equal(at(8, 0)) {
		t.Errorf("oldest unresolved = %v, want 08:00", s.OldestUnresolvedAt)
	}
	if s.MeanResolutionHours == nil || *s.MeanResolutionHours != 4 {
		t.Errorf("mean resolution hours = %v, want 4", s.MeanResolutionHours)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("ev-1", nil)
	if s.Total != 0 || s.OldestUnresolvedAt != nil || s.MeanResolutionHours != nil {
		t.Fatalf("empty summary = %+v", s)
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze("ev-1", analyticsFixture(), 8)

	if a.ConflictRate != 0.5 {
		t.Errorf("conflict rate = %v, want 0.5 (4 conflicts / 8 sessions)", a.ConflictRate)
	}
	if a.ResolutionRate != 25 {
		t.Errorf("resolution rate = %v, want 25", a.ResolutionRate)
	}
	if len(a.TopResources) != 1 || a.TopResources[0].ResourceID != "res-1" || a.TopResources[0].Count != 1 {
		t.Errorf("top resources = %+v", a.TopResources)
	}
	if len(a.TopSessions) == 0 || a.TopSessions[0].SessionID != "sess-a" || a.TopSessions[0].Count != 3 {
		t.Errorf("top sessions = %+v", a.TopSessions)
	}
	if len(a.Recommendations) != 4 {
		t.Errorf("recommendations = %v, want one per present type", a.Recommendations)
	}
}

func TestAnalyzeMostCommonTypeTieBreak(t *testing.T) {
	conflicts := []model.ScheduleConflict{
		{ID: "c-1", Type: model.ConflictUser, PrimarySessionID: "s1", ResolutionStatus: model.ResolutionUnresolved, IsActive: true},
		{ID: "c-2", Type: model.ConflictResource, PrimarySessionID: "s2", ResolutionStatus: model.ResolutionUnresolved, IsActive: true},
	}
	a := Analyze("ev-1", conflicts, 2)
	if a.MostCommonType == nil || *a.MostCommonType != model.ConflictResource {
		t.Fatalf("most common type = %v, want RESOURCE_CONFLICT (lexicographic tie-break)", a.MostCommonType)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze("ev-1", nil, 0)
	if a.ConflictRate != 0 || a.ResolutionRate != 0 || a.MostCommonType != nil {
		t.Fatalf("empty analytics = %+v", a)
	}
	if a.TopResources == nil || a.TopSessions == nil || a.Recommendations == nil {
		t.Fatal("empty analytics slices must be non-nil for JSON clients")
	}
}
