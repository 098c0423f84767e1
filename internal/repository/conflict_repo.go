package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventra-labs/eventra/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conflictColumns = `id, event_id, type, severity, primary_session_id, secondary_session_id,
	resource_id, registration_id, conflict_start, conflict_end, affected_count,
	can_auto_resolve, auto_resolution_strategy, resolution_status, detected_at,
	resolved_at, resolved_by, is_active`

// ConflictRepository persists detected conflicts and their resolution audit
// trail. Conflict rows are never deleted; stale ones are soft-retired with
// is_active=false by external triggers and excluded from every query here.
type ConflictRepository struct {
	db *pgxpool.Pool
}

// NewConflictRepository constructs a ConflictRepository.
func NewConflictRepository(db *pgxpool.Pool) *ConflictRepository {
	return &ConflictRepository{db: db}
}

func scanConflict(row pgx.Row) (*model.ScheduleConflict, error) {
	var c model.ScheduleConflict
	err := row.Scan(&c.ID, &c.EventID, &c.Type, &c.Severity, &c.PrimarySessionID, &c.SecondarySessionID,
		&c.ResourceID, &c.RegistrationID, &c.ConflictStart, &c.ConflictEnd, &c.AffectedCount,
		&c.CanAutoResolve, &c.AutoResolutionStrategy, &c.ResolutionStatus, &c.DetectedAt,
		&c.ResolvedAt, &c.ResolvedBy, &c.IsActive)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConflictRepository) list(ctx context.Context, query string, args ...any) ([]model.ScheduleConflict, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduleConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListActive returns all active conflicts for an event, any resolution state.
func (r *ConflictRepository) ListActive(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	return r.list(ctx,
		`SELECT `+conflictColumns+`
		 FROM schedule_conflicts
		 WHERE event_id = $1 AND is_active
		 ORDER BY detected_at, id`,
		eventID,
	)
}

// ListActiveUnresolved returns the active, still-unresolved conflicts for an
// event — the set duplicate detection checks candidates against.
func (r *ConflictRepository) ListActiveUnresolved(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	return r.list(ctx,
		`SELECT `+conflictColumns+`
		 FROM schedule_conflicts
		 WHERE event_id = $1 AND is_active AND resolution_status = 'UNRESOLVED'
		 ORDER BY detected_at, id`,
		eventID,
	)
}

// ListAutoResolvable returns every active unresolved conflict flagged for
// unattended remediation, across all events, oldest first.
func (r *ConflictRepository) ListAutoResolvable(ctx context.Context) ([]model.ScheduleConflict, error) {
	return r.list(ctx,
		`SELECT `+conflictColumns+`
		 FROM schedule_conflicts
		 WHERE can_auto_resolve AND is_active AND resolution_status = 'UNRESOLVED'
		 ORDER BY detected_at, id`,
	)
}

// GetByID returns a single conflict or ErrNotFound.
func (r *ConflictRepository) GetByID(ctx context.Context, id string) (*model.ScheduleConflict, error) {
	c, err := scanConflict(r.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM schedule_conflicts WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return c, nil
}

// Insert persists freshly detected conflicts, assigning each a UUID, the
// detection timestamp, UNRESOLVED status, and the active flag. All rows go in
// one transaction; detection results are not worth splitting per item.
func (r *ConflictRepository) Insert(ctx context.Context, candidates []model.ScheduleConflict) ([]model.ScheduleConflict, error) {
	if len(candidates) == 0 {
		return []model.ScheduleConflict{}, nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	stored := make([]model.ScheduleConflict, 0, len(candidates))
	for _, c := range candidates {
		c.ID = uuid.New().String()
		c.DetectedAt = now
		c.ResolutionStatus = model.ResolutionUnresolved
		c.IsActive = true
		_, err := tx.Exec(ctx,
			`INSERT INTO schedule_conflicts (`+conflictColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			c.ID, c.EventID, c.Type, c.Severity, c.PrimarySessionID, c.SecondarySessionID,
			c.ResourceID, c.RegistrationID, c.ConflictStart, c.ConflictEnd, c.AffectedCount,
			c.CanAutoResolve, c.AutoResolutionStrategy, c.ResolutionStatus, c.DetectedAt,
			c.ResolvedAt, c.ResolvedBy, c.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("insert conflict: %w", err)
		}
		stored = append(stored, c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return stored, nil
}

// SetResolved moves a conflict to RESOLVED, stamping who and when.
func (r *ConflictRepository) SetResolved(ctx context.Context, id, resolvedBy string, resolvedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_conflicts
		 SET resolution_status = 'RESOLVED', resolved_by = $2, resolved_at = $3
		 WHERE id = $1`,
		id, resolvedBy, resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("set resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAcknowledged moves an UNRESOLVED conflict to ACKNOWLEDGED.
func (r *ConflictRepository) SetAcknowledged(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_conflicts
		 SET resolution_status = 'ACKNOWLEDGED'
		 WHERE id = $1 AND resolution_status = 'UNRESOLVED'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set acknowledged: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddResolution appends an audit record. The table is append-only.
func (r *ConflictRepository) AddResolution(ctx context.Context, res model.ConflictResolution) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conflict_resolutions
		 (id, conflict_id, resolution_type, description, implemented_by,
		  affected_sessions, affected_registrations, affected_resources, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.ConflictID, res.ResolutionType, res.Description, res.ImplementedBy,
		res.AffectedSessions, res.AffectedRegistrations, res.AffectedResources, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}
