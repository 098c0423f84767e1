package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
	"github.com/google/uuid"
)

// systemActor stamps resolutions applied without a human in the loop.
const systemActor = "system"

// ResolutionEngine records manual resolutions and runs the auto-resolve
// sweep. Auto-resolution applies only the remediations sanctioned per type:
// capacity rebalancing demotes the newest registrations to the waitlist;
// user conflicts are acknowledged, never cancelled, without human action.
type ResolutionEngine struct {
	store    ConflictStore
	capacity CapacityStore
	log      *slog.Logger
}

// NewResolutionEngine constructs a ResolutionEngine with its dependencies.
func NewResolutionEngine(store ConflictStore, capacity CapacityStore, log *slog.Logger) *ResolutionEngine {
	return &ResolutionEngine{store: store, capacity: capacity, log: log}
}

// ResolveConflict records a manual resolution: an append-only audit row plus
// the RESOLVED transition. Resolving an already-RESOLVED conflict fails with
// ErrAlreadyResolved; ACKNOWLEDGED conflicts may still be resolved.
func (e *ResolutionEngine) ResolveConflict(ctx context.Context, conflictID string, req model.ResolveConflictRequest) (*model.ScheduleConflict, error) {
	req.ResolvedBy = strings.TrimSpace(req.ResolvedBy)
	if req.ResolvedBy == "" {
		return nil, fmt.Errorf("resolved_by is required")
	}
	if strings.TrimSpace(req.ResolutionType) == "" {
		return nil, fmt.Errorf("resolution_type is required")
	}

	c, err := e.store.GetByID(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if c.ResolutionStatus == model.ResolutionResolved {
		return nil, ErrAlreadyResolved
	}

	now := time.Now().UTC()
	res := model.ConflictResolution{
		ID:             uuid.New().String(),
		ConflictID:     c.ID,
		ResolutionType: req.ResolutionType,
		Description:    req.Description,
		ImplementedBy:  req.ResolvedBy,
		CreatedAt:      now,
	}
	if err := e.store.AddResolution(ctx, res); err != nil {
		return nil, fmt.Errorf("record resolution: %w", err)
	}
	if err := e.store.SetResolved(ctx, c.ID, req.ResolvedBy, now); err != nil {
		return nil, fmt.Errorf("mark resolved: %w", err)
	}

	c.ResolutionStatus = model.ResolutionResolved
	c.ResolvedBy = &req.ResolvedBy
	c.ResolvedAt = &now
	e.log.Info("conflict resolved", "conflict_id", c.ID, "type", c.Type, "resolved_by", req.ResolvedBy)
	return c, nil
}

// AutoResolveConflicts sweeps every active, unresolved, auto-resolvable
// conflict and dispatches per type. One conflict's failure is logged,
// collected, and excluded from the result; the sweep continues — partial
// success is the normal outcome. The returned error is non-nil only when the
// work list itself cannot be loaded.
func (e *ResolutionEngine) AutoResolveConflicts(ctx context.Context) ([]model.ScheduleConflict, []error, error) {
	work, err := e.store.ListAutoResolvable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list auto-resolvable conflicts: %w", err)
	}

	var done []model.ScheduleConflict
	var failures []error
	for _, c := range work {
		if !c.IsActive {
			continue
		}
		switch c.Type {
		case model.ConflictCapacityExceeded:
			if err := e.rebalanceCapacity(ctx, &c); err != nil {
				e.log.Error("capacity auto-resolution failed", "conflict_id", c.ID, "error", err)
				failures = append(failures, fmt.Errorf("conflict %s: %w", c.ID, err))
				continue
			}
			done = append(done, c)
		case model.ConflictUser:
			// Acknowledge only. The engine never cancels a registration
			// without human action.
			if err := e.store.SetAcknowledged(ctx, c.ID); err != nil {
				e.log.Error("acknowledge failed", "conflict_id", c.ID, "error", err)
				failures = append(failures, fmt.Errorf("conflict %s: %w", c.ID, err))
				continue
			}
			c.ResolutionStatus = model.ResolutionAcknowledged
			done = append(done, c)
		default:
			// TIME_OVERLAP and RESOURCE_CONFLICT never carry the flag;
			// a row that does anyway is skipped.
			e.log.Warn("skipping conflict type with no auto-resolution", "conflict_id", c.ID, "type", c.Type)
		}
	}

	e.log.Info("auto-resolve sweep complete", "processed", len(done), "failed", len(failures))
	return done, failures, nil
}

// rebalanceCapacity demotes the most recently registered attendees beyond the
// session's capacity onto the waitlist, records the audit row, and marks the
// conflict RESOLVED. The earliest registrants keep their seats.
func (e *ResolutionEngine) rebalanceCapacity(ctx context.Context, c *model.ScheduleConflict) error {
	capRow, err := e.capacity.Capacity(ctx, c.PrimarySessionID)
	if err != nil {
		return fmt.Errorf("load capacity: %w", err)
	}
	regs, err := e.capacity.Registered(ctx, c.PrimarySessionID)
	if err != nil {
		return fmt.Errorf("load registrations: %w", err)
	}

	now := time.Now().UTC()
	overflow := conflict.Overflow(regs, capRow.MaximumCapacity)
	if len(overflow) > 0 {
		ids := make([]string, len(overflow))
		for i, reg := range overflow {
			ids[i] = reg.RegistrationID
		}
		if err := e.capacity.Demote(ctx, c.PrimarySessionID, ids, now); err != nil {
			return fmt.Errorf("demote overflow: %w", err)
		}
	}

	res := model.ConflictResolution{
		ID:                    uuid.New().String(),
		ConflictID:            c.ID,
		ResolutionType:        model.StrategyCapacityRebalance,
		Description:           fmt.Sprintf("moved %d most recent registrations to waitlist (capacity %d)", len(overflow), capRow.MaximumCapacity),
		ImplementedBy:         systemActor,
		AffectedSessions:      1,
		AffectedRegistrations: len(overflow),
		CreatedAt:             now,
	}
	if err := e.store.AddResolution(ctx, res); err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}
	if err := e.store.SetResolved(ctx, c.ID, systemActor, now); err != nil {
		return fmt.Errorf("mark resolved: %w", err)
	}

	c.ResolutionStatus = model.ResolutionResolved
	by := systemActor
	c.ResolvedBy = &by
	c.ResolvedAt = &now
	e.log.Info("capacity conflict auto-resolved",
		"conflict_id", c.ID, "session_id", c.PrimarySessionID, "demoted", len(overflow))
	return nil
}
