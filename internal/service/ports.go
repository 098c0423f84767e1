// Package service implements the conflict engine's orchestration layer:
// detection, resolution, waitlist management, and analytics. Services depend
// on narrow store interfaces so the logic tests without a database; the
// repository package provides the pgx implementations.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
)

// ErrAlreadyResolved is returned when resolving a conflict that is already
// RESOLVED. RESOLVED is terminal; there is no outgoing transition.
var ErrAlreadyResolved = errors.New("conflict already resolved")

// ScheduleReader loads read-only schedule data for one event.
type ScheduleReader interface {
	Snapshot(ctx context.Context, eventID string) (*conflict.Snapshot, error)
	SessionCount(ctx context.Context, eventID string) (int, error)
}

// ConflictStore persists conflicts and their resolution audit trail.
type ConflictStore interface {
	ListActive(ctx context.Context, eventID string) ([]model.ScheduleConflict, error)
	ListActiveUnresolved(ctx context.Context, eventID string) ([]model.ScheduleConflict, error)
	ListAutoResolvable(ctx context.Context) ([]model.ScheduleConflict, error)
	GetByID(ctx context.Context, id string) (*model.ScheduleConflict, error)
	Insert(ctx context.Context, candidates []model.ScheduleConflict) ([]model.ScheduleConflict, error)
	SetResolved(ctx context.Context, id, resolvedBy string, resolvedAt time.Time) error
	SetAcknowledged(ctx context.Context, id string) error
	AddResolution(ctx context.Context, res model.ConflictResolution) error
}

// CapacityStore mutates registrations and capacity counters. Promote and
// Demote are single locked transactions; the implementation recomputes
// available spots under the lock.
type CapacityStore interface {
	Capacity(ctx context.Context, sessionID string) (*model.SessionCapacity, error)
	AutoPromotable(ctx context.Context) ([]model.SessionCapacity, error)
	Registered(ctx context.Context, sessionID string) ([]model.SessionRegistration, error)
	Waitlisted(ctx context.Context, sessionID string) ([]model.SessionRegistration, error)
	Promote(ctx context.Context, sessionID string, candidateIDs []string, reason string) (int, error)
	Demote(ctx context.Context, sessionID string, registrationIDs []string, at time.Time) error
}
