package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CapacityRepository owns every mutation of session_registrations and
// session_capacity. All mutations serialize on the session's capacity row.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY SELECT … FOR UPDATE
// ─────────────────────────────────────────────────────────────────────────────
//
// Naive read-then-write promotion (BROKEN):
//
//	run A: SELECT available_spots → 1
//	run B: SELECT available_spots → 1
//	run A: promote one waitlisted registration, available_spots = 0
//	run B: promote one waitlisted registration, available_spots = -1
//	Result: two promotions into a single open slot. OVERCOMMITTED.
//
// SELECT … FOR UPDATE acquires a row-level exclusive lock on the capacity row
// inside the transaction, so a concurrent promotion run on the same session
// blocks until the first run commits or rolls back. Occupancy is re-read and
// available_spots recomputed under the lock, immediately before acting.
//
// The lock is per session only. Cross-session shared-resource capacity is not
// checked here; that is the conflict detectors' job, run separately.
// ─────────────────────────────────────────────────────────────────────────────
type CapacityRepository struct {
	db *pgxpool.Pool
}

// NewCapacityRepository constructs a CapacityRepository.
func NewCapacityRepository(db *pgxpool.Pool) *CapacityRepository {
	return &CapacityRepository{db: db}
}

// Capacity returns the capacity row for a session, or ErrNotFound.
func (r *CapacityRepository) Capacity(ctx context.Context, sessionID string) (*model.SessionCapacity, error) {
	var c model.SessionCapacity
	err := r.db.QueryRow(ctx,
		`SELECT session_id, maximum_capacity, minimum_capacity, current_registrations,
		        current_waitlist_count, available_spots, waitlist_enabled, auto_promote
		 FROM session_capacity WHERE session_id = $1`,
		sessionID,
	).Scan(&c.SessionID, &c.MaximumCapacity, &c.MinimumCapacity, &c.CurrentRegistrations,
		&c.CurrentWaitlistCount, &c.AvailableSpots, &c.WaitlistEnabled, &c.AutoPromote)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session capacity: %w", err)
	}
	return &c, nil
}

// AutoPromotable returns the sessions eligible for the auto-promote sweep:
// waitlist enabled, auto-promote on, open spots, and a non-empty waitlist.
func (r *CapacityRepository) AutoPromotable(ctx context.Context) ([]model.SessionCapacity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT session_id, maximum_capacity, minimum_capacity, current_registrations,
		        current_waitlist_count, available_spots, waitlist_enabled, auto_promote
		 FROM session_capacity
		 WHERE waitlist_enabled AND auto_promote
		   AND available_spots > 0 AND current_waitlist_count > 0
		 ORDER BY session_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list auto-promotable sessions: %w", err)
	}
	defer rows.Close()

	var out []model.SessionCapacity
	for rows.Next() {
		var c model.SessionCapacity
		if err := rows.Scan(&c.SessionID, &c.MaximumCapacity, &c.MinimumCapacity, &c.CurrentRegistrations,
			&c.CurrentWaitlistCount, &c.AvailableSpots, &c.WaitlistEnabled, &c.AutoPromote); err != nil {
			return nil, fmt.Errorf("scan session capacity: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CapacityRepository) listRegistrations(ctx context.Context, query, sessionID string) ([]model.SessionRegistration, error) {
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []model.SessionRegistration
	for rows.Next() {
		var reg model.SessionRegistration
		if err := rows.Scan(&reg.SessionID, &reg.RegistrationID, &reg.Status, &reg.WaitlistPosition,
			&reg.RegisteredAt, &reg.WaitlistRegisteredAt, &reg.Notes); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// Registered returns a session's REGISTERED registrations, earliest first.
func (r *CapacityRepository) Registered(ctx context.Context, sessionID string) ([]model.SessionRegistration, error) {
	return r.listRegistrations(ctx,
		`SELECT session_id, registration_id, status, waitlist_position,
		        registered_at, waitlist_registered_at, notes
		 FROM session_registrations
		 WHERE session_id = $1 AND status = 'REGISTERED'
		 ORDER BY registered_at, registration_id`,
		sessionID,
	)
}

// Waitlisted returns a session's waitlist in FIFO order by when each
// registration joined the waitlist.
func (r *CapacityRepository) Waitlisted(ctx context.Context, sessionID string) ([]model.SessionRegistration, error) {
	return r.listRegistrations(ctx,
		`SELECT session_id, registration_id, status, waitlist_position,
		        registered_at, waitlist_registered_at, notes
		 FROM session_registrations
		 WHERE session_id = $1 AND status = 'WAITLIST'
		 ORDER BY waitlist_registered_at NULLS LAST, registration_id`,
		sessionID,
	)
}

// Promote flips up to len(candidateIDs) waitlisted registrations to
// REGISTERED inside one locked transaction, in the order supplied by the
// caller, and never more than the spots open at the moment the lock is held.
// Candidates that are no longer waitlisted are skipped without consuming a
// slot. Returns how many were promoted.
func (r *CapacityRepository) Promote(ctx context.Context, sessionID string, candidateIDs []string, reason string) (int, error) {
	if len(candidateIDs) == 0 {
		return 0, nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Step 1: lock the capacity row and re-read occupancy. available_spots is
	// recomputed here, under the lock, not trusted from any earlier read.
	var maxCap, current int
	err = tx.QueryRow(ctx,
		`SELECT maximum_capacity, current_registrations
		 FROM session_capacity
		 WHERE session_id = $1
		 FOR UPDATE`,
		sessionID,
	).Scan(&maxCap, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock capacity row: %w", err)
	}

	quota := conflict.PromotionQuota(max(0, maxCap-current), len(candidateIDs))
	if quota == 0 {
		return 0, tx.Commit(ctx)
	}

	// Step 2: promote candidates in caller order until the quota is consumed.
	promoted := 0
	now := time.Now().UTC()
	for _, id := range candidateIDs {
		if promoted == quota {
			break
		}
		tag, err := tx.Exec(ctx,
			`UPDATE session_registrations
			 SET status = 'REGISTERED',
			     waitlist_position = NULL,
			     waitlist_registered_at = NULL,
			     notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END
			 WHERE session_id = $1 AND registration_id = $2 AND status = 'WAITLIST'`,
			sessionID, id, fmt.Sprintf("promoted from waitlist at %s: %s", now.Format(time.RFC3339), reason),
		)
		if err != nil {
			return 0, fmt.Errorf("promote registration %s: %w", id, err)
		}
		promoted += int(tag.RowsAffected())
	}

	// Step 3: recompute the counters in the same transaction.
	if promoted > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE session_capacity
			 SET current_registrations = current_registrations + $2,
			     current_waitlist_count = GREATEST(0, current_waitlist_count - $2),
			     available_spots = GREATEST(0, maximum_capacity - (current_registrations + $2))
			 WHERE session_id = $1`,
			sessionID, promoted,
		)
		if err != nil {
			return 0, fmt.Errorf("recompute capacity counters: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return promoted, nil
}

// Demote moves the given REGISTERED registrations onto the waitlist, used by
// capacity auto-resolution. Same locking discipline as Promote; waitlist
// positions continue after the current tail.
func (r *CapacityRepository) Demote(ctx context.Context, sessionID string, registrationIDs []string, at time.Time) error {
	if len(registrationIDs) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxCap, current int
	err = tx.QueryRow(ctx,
		`SELECT maximum_capacity, current_registrations
		 FROM session_capacity
		 WHERE session_id = $1
		 FOR UPDATE`,
		sessionID,
	).Scan(&maxCap, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock capacity row: %w", err)
	}

	var tailPosition int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(waitlist_position), 0)
		 FROM session_registrations
		 WHERE session_id = $1 AND status = 'WAITLIST'`,
		sessionID,
	).Scan(&tailPosition)
	if err != nil {
		return fmt.Errorf("read waitlist tail: %w", err)
	}

	demoted := 0
	for _, id := range registrationIDs {
		tag, err := tx.Exec(ctx,
			`UPDATE session_registrations
			 SET status = 'WAITLIST',
			     waitlist_position = $3,
			     waitlist_registered_at = $4
			 WHERE session_id = $1 AND registration_id = $2 AND status = 'REGISTERED'`,
			sessionID, id, tailPosition+demoted+1, at,
		)
		if err != nil {
			return fmt.Errorf("demote registration %s: %w", id, err)
		}
		demoted += int(tag.RowsAffected())
	}

	if demoted > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE session_capacity
			 SET current_registrations = GREATEST(0, current_registrations - $2),
			     current_waitlist_count = current_waitlist_count + $2,
			     available_spots = GREATEST(0, maximum_capacity - GREATEST(0, current_registrations - $2))
			 WHERE session_id = $1`,
			sessionID, demoted,
		)
		if err != nil {
			return fmt.Errorf("recompute capacity counters: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
