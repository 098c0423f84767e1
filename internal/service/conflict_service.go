package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
)

// ConflictService runs conflict detection for an event and persists what is
// genuinely new.
type ConflictService struct {
	schedule ScheduleReader
	store    ConflictStore
	log      *slog.Logger
}

// NewConflictService constructs a ConflictService with its dependencies.
func NewConflictService(schedule ScheduleReader, store ConflictStore, log *slog.Logger) *ConflictService {
	return &ConflictService{schedule: schedule, store: store, log: log}
}

// DetectAllConflicts loads a consistent snapshot of the event's schedule,
// runs the four detectors, suppresses duplicates of stored active unresolved
// conflicts, and persists the remainder. Returns the newly stored conflicts;
// re-running against unchanged data returns an empty list (idempotence), and
// an empty result is a normal outcome, not an error.
func (s *ConflictService) DetectAllConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	snap, err := s.schedule.Snapshot(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load schedule snapshot: %w", err)
	}

	candidates := conflict.DetectAll(snap)
	existing, err := s.store.ListActiveUnresolved(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list existing conflicts: %w", err)
	}

	fresh := conflict.Dedupe(candidates, existing)
	stored, err := s.store.Insert(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("store conflicts: %w", err)
	}

	// One notification per newly stored conflict; delivery is the
	// notification collaborator's concern.
	s.log.Info("conflict detection complete",
		"event_id", eventID,
		"sessions", len(snap.Sessions),
		"candidates", len(candidates),
		"duplicates", len(candidates)-len(fresh),
		"stored", len(stored),
		"notifications_sent", len(stored))
	return stored, nil
}

// ListConflicts returns all active conflicts for an event.
func (s *ConflictService) ListConflicts(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	return s.store.ListActive(ctx, eventID)
}
