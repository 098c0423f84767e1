package service

import (
	"context"
	"fmt"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
)

// AnalyticsAggregator computes summary and analytics views over an event's
// stored conflicts. Read-only; the math lives in the conflict package.
type AnalyticsAggregator struct {
	schedule ScheduleReader
	store    ConflictStore
}

// NewAnalyticsAggregator constructs an AnalyticsAggregator.
func NewAnalyticsAggregator(schedule ScheduleReader, store ConflictStore) *AnalyticsAggregator {
	return &AnalyticsAggregator{schedule: schedule, store: store}
}

// ConflictSummary returns per-event conflict counts by type and severity,
// unresolved/critical/auto-resolvable tallies, the oldest unresolved
// detection time, and the mean resolution time in hours.
func (a *AnalyticsAggregator) ConflictSummary(ctx context.Context, eventID string) (*model.ConflictSummary, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	conflicts, err := a.store.ListActive(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	summary := conflict.Summarize(eventID, conflicts)
	return &summary, nil
}

// ConflictAnalytics returns the analytics view: conflict and resolution
// rates, the dominant type, the most conflicted resources and sessions, and
// rule-based prevention recommendations.
func (a *AnalyticsAggregator) ConflictAnalytics(ctx context.Context, eventID string) (*model.ConflictAnalytics, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	conflicts, err := a.store.ListActive(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	sessions, err := a.schedule.SessionCount(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	analytics := conflict.Analyze(eventID, conflicts, sessions)
	return &analytics, nil
}
