// Package repository implements all database queries for the conflict
// engine. It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ScheduleRepository reads the schedule data the detectors run over.
// All access is read-only; sessions and bookings are owned by event CRUD.
type ScheduleRepository struct {
	db *pgxpool.Pool
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Snapshot loads an event's active sessions, their resource bookings, and
// session registrations inside one read-only transaction, so detection never
// runs against half-written state. Sessions come back ordered by start time,
// bookings by resource id, registrations by registration time — the stable
// orders the detectors rely on.
func (r *ScheduleRepository) Snapshot(ctx context.Context, eventID string) (*conflict.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap := &conflict.Snapshot{EventID: eventID}

	rows, err := tx.Query(ctx,
		`SELECT id, event_id, title, start_time, end_time, capacity, active
		 FROM sessions
		 WHERE event_id = $1 AND active
		 ORDER BY start_time, id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot sessions: %w", err)
	}
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.EventID, &s.Title, &s.StartTime, &s.EndTime, &s.Capacity, &s.Active); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		snap.Sessions = append(snap.Sessions, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot sessions: %w", err)
	}

	rows, err = tx.Query(ctx,
		`SELECT b.session_id, b.resource_id, b.booking_start, b.booking_end, b.quantity_allocated, b.status
		 FROM resource_bookings b
		 JOIN sessions s ON s.id = b.session_id
		 WHERE s.event_id = $1 AND b.status <> 'CANCELLED'
		 ORDER BY b.resource_id, b.booking_start, b.session_id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot bookings: %w", err)
	}
	for rows.Next() {
		var b model.ResourceBooking
		if err := rows.Scan(&b.SessionID, &b.ResourceID, &b.BookingStart, &b.BookingEnd, &b.QuantityAllocated, &b.Status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		snap.Bookings = append(snap.Bookings, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot bookings: %w", err)
	}

	rows, err = tx.Query(ctx,
		`SELECT sr.session_id, sr.registration_id, sr.status, sr.waitlist_position,
		        sr.registered_at, sr.waitlist_registered_at, sr.notes
		 FROM session_registrations sr
		 JOIN sessions s ON s.id = sr.session_id
		 WHERE s.event_id = $1
		 ORDER BY sr.registered_at, sr.registration_id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot registrations: %w", err)
	}
	for rows.Next() {
		var reg model.SessionRegistration
		if err := rows.Scan(&reg.SessionID, &reg.RegistrationID, &reg.Status, &reg.WaitlistPosition,
			&reg.RegisteredAt, &reg.WaitlistRegisteredAt, &reg.Notes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		snap.Registrations = append(snap.Registrations, reg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot registrations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return snap, nil
}

// SessionCount returns the number of active sessions for an event.
func (r *ScheduleRepository) SessionCount(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE event_id = $1 AND active`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
