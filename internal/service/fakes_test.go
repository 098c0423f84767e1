package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/eventra-labs/eventra/internal/conflict"
	"github.com/eventra-labs/eventra/internal/model"
	"github.com/eventra-labs/eventra/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// fakeSchedule is an in-memory ScheduleReader.
type fakeSchedule struct {
	snapshot *conflict.Snapshot
	err      error
}

func (f *fakeSchedule) Snapshot(ctx context.Context, eventID string) (*conflict.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeSchedule) SessionCount(ctx context.Context, eventID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.snapshot.Sessions), nil
}

// fakeConflictStore is an in-memory ConflictStore.
type fakeConflictStore struct {
	conflicts   map[string]*model.ScheduleConflict
	resolutions []model.ConflictResolution
	nextID      int

	resolveErr map[string]error // per-conflict SetResolved failures
}

func newFakeConflictStore() *fakeConflictStore {
	return &fakeConflictStore{
		conflicts:  make(map[string]*model.ScheduleConflict),
		resolveErr: make(map[string]error),
	}
}

func (f *fakeConflictStore) sorted() []model.ScheduleConflict {
	var out []model.ScheduleConflict
	for _, c := range f.conflicts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeConflictStore) ListActive(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	var out []model.ScheduleConflict
	for _, c := range f.sorted() {
		if c.EventID == eventID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConflictStore) ListActiveUnresolved(ctx context.Context, eventID string) ([]model.ScheduleConflict, error) {
	var out []model.ScheduleConflict
	for _, c := range f.sorted() {
		if c.EventID == eventID && c.IsActive && c.ResolutionStatus == model.ResolutionUnresolved {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConflictStore) ListAutoResolvable(ctx context.Context) ([]model.ScheduleConflict, error) {
	var out []model.ScheduleConflict
	for _, c := range f.sorted() {
		if c.CanAutoResolve && c.IsActive && c.ResolutionStatus == model.ResolutionUnresolved {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConflictStore) GetByID(ctx context.Context, id string) (*model.ScheduleConflict, error) {
	c, ok := f.conflicts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeConflictStore) Insert(ctx context.Context, candidates []model.ScheduleConflict) ([]model.ScheduleConflict, error) {
	now := time.Now().UTC()
	stored := make([]model.ScheduleConflict, 0, len(candidates))
	for _, c := range candidates {
		f.nextID++
		c.ID = fmt.Sprintf("conflict-%03d", f.nextID)
		c.DetectedAt = now
		c.ResolutionStatus = model.ResolutionUnresolved
		c.IsActive = true
		copied := c
		f.conflicts[c.ID] = &copied
		stored = append(stored, c)
	}
	return stored, nil
}

func (f *fakeConflictStore) SetResolved(ctx context.Context, id, resolvedBy string, resolvedAt time.Time) error {
	if err := f.resolveErr[id]; err != nil {
		return err
	}
	c, ok := f.conflicts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ResolutionStatus = model.ResolutionResolved
	c.ResolvedBy = &resolvedBy
	c.ResolvedAt = &resolvedAt
	return nil
}

func (f *fakeConflictStore) SetAcknowledged(ctx context.Context, id string) error {
	c, ok := f.conflicts[id]
	if !ok || c.ResolutionStatus != model.ResolutionUnresolved {
		return repository.ErrNotFound
	}
	c.ResolutionStatus = model.ResolutionAcknowledged
	return nil
}

func (f *fakeConflictStore) AddResolution(ctx context.Context, res model.ConflictResolution) error {
	f.resolutions = append(f.resolutions, res)
	return nil
}

// fakeCapacityStore is an in-memory CapacityStore. Promote and Demote mirror
// the real repository's semantics: spot counts recomputed immediately before
// acting, promotions bounded by what is open, counters refreshed after.
type fakeCapacityStore struct {
	capacities    map[string]*model.SessionCapacity
	registrations map[string][]model.SessionRegistration

	promoteErr map[string]error // per-session Promote failures
	demoteErr  map[string]error // per-session Demote failures
}

func newFakeCapacityStore() *fakeCapacityStore {
	return &fakeCapacityStore{
		capacities:    make(map[string]*model.SessionCapacity),
		registrations: make(map[string][]model.SessionRegistration),
		promoteErr:    make(map[string]error),
		demoteErr:     make(map[string]error),
	}
}

func (f *fakeCapacityStore) Capacity(ctx context.Context, sessionID string) (*model.SessionCapacity, error) {
	c, ok := f.capacities[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCapacityStore) AutoPromotable(ctx context.Context) ([]model.SessionCapacity, error) {
	var out []model.SessionCapacity
	for _, c := range f.capacities {
		if c.WaitlistEnabled && c.AutoPromote && c.AvailableSpots > 0 && c.CurrentWaitlistCount > 0 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (f *fakeCapacityStore) byStatus(sessionID string, status model.RegistrationStatus) []model.SessionRegistration {
	var out []model.SessionRegistration
	for _, reg := range f.registrations[sessionID] {
		if reg.Status == status {
			out = append(out, reg)
		}
	}
	return out
}

func (f *fakeCapacityStore) Registered(ctx context.Context, sessionID string) ([]model.SessionRegistration, error) {
	out := f.byStatus(sessionID, model.StatusRegistered)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (f *fakeCapacityStore) Waitlisted(ctx context.Context, sessionID string) ([]model.SessionRegistration, error) {
	out := f.byStatus(sessionID, model.StatusWaitlist)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].WaitlistRegisteredAt, out[j].WaitlistRegisteredAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (f *fakeCapacityStore) Promote(ctx context.Context, sessionID string, candidateIDs []string, reason string) (int, error) {
	if err := f.promoteErr[sessionID]; err != nil {
		return 0, err
	}
	capRow, ok := f.capacities[sessionID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	quota := conflict.PromotionQuota(max(0, capRow.MaximumCapacity-capRow.CurrentRegistrations), len(candidateIDs))
	promoted := 0
	for _, id := range candidateIDs {
		if promoted == quota {
			break
		}
		regs := f.registrations[sessionID]
		for i := range regs {
			if regs[i].RegistrationID == id && regs[i].Status == model.StatusWaitlist {
				regs[i].Status = model.StatusRegistered
				regs[i].WaitlistPosition = nil
				regs[i].WaitlistRegisteredAt = nil
				promoted++
				break
			}
		}
	}
	capRow.CurrentRegistrations += promoted
	capRow.CurrentWaitlistCount = max(0, capRow.CurrentWaitlistCount-promoted)
	capRow.Recompute()
	return promoted, nil
}

func (f *fakeCapacityStore) Demote(ctx context.Context, sessionID string, registrationIDs []string, at time.Time) error {
	if err := f.demoteErr[sessionID]; err != nil {
		return err
	}
	capRow, ok := f.capacities[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	demoted := 0
	for _, id := range registrationIDs {
		regs := f.registrations[sessionID]
		for i := range regs {
			if regs[i].RegistrationID == id && regs[i].Status == model.StatusRegistered {
				regs[i].Status = model.StatusWaitlist
				when := at
				regs[i].WaitlistRegisteredAt = &when
				demoted++
				break
			}
		}
	}
	capRow.CurrentRegistrations = max(0, capRow.CurrentRegistrations-demoted)
	capRow.CurrentWaitlistCount += demoted
	capRow.Recompute()
	return nil
}
