// Package conflict implements the schedule conflict engine: detection of
// scheduling inconsistencies over an event snapshot, severity classification,
// duplicate suppression, capacity rebalancing math, and analytics rollups.
// Everything here is pure — no I/O, no clock reads — so the algorithms are
// testable without a database.
package conflict

import (
	"sort"
	"time"

	"github.com/eventra-labs/eventra/internal/model"
)

// Snapshot is a consistent read of one event's schedule, loaded inside a
// single transaction so detection never sees half-written state.
// Sessions must be ordered by start time (then id), bookings by resource id
// (then booking start) — detectors rely on the input order for deterministic
// output.
type Snapshot struct {
	EventID       string
	Sessions      []model.Session
	Bookings      []model.ResourceBooking
	Registrations []model.SessionRegistration
}

// overlaps is the strict interval test shared by every detector:
// touching endpoints are not a conflict.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// window returns the overlapping portion of two intervals,
// [max(starts), min(ends)].
func window(aStart, aEnd, bStart, bEnd time.Time) (time.Time, time.Time) {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return start, end
}

// DetectAll runs the four detectors over the snapshot and returns the
// combined candidate list. Candidates carry everything but an id and a
// detection timestamp; the store assigns those on insert.
func DetectAll(snap *Snapshot) []model.ScheduleConflict {
	var out []model.ScheduleConflict
	out = append(out, DetectTimeOverlaps(snap)...)
	out = append(out, DetectResourceConflicts(snap)...)
	out = append(out, DetectCapacityConflicts(snap)...)
	out = append(out, DetectUserConflicts(snap)...)
	return out
}

// DetectTimeOverlaps flags every pair of active sessions whose intervals
// strictly overlap. Severity depends on whether the pair shares resources or
// registrants; affected count is the number of attendees REGISTERED in both.
func DetectTimeOverlaps(snap *Snapshot) []model.ScheduleConflict {
	resources := resourcesBySession(snap.Bookings)
	registered := registeredBySession(snap.Registrations)

	var out []model.ScheduleConflict
	for i := 0; i < len(snap.Sessions); i++ {
		a := snap.Sessions[i]
		if !a.Active {
			continue
		}
		for j := i + 1; j < len(snap.Sessions); j++ {
			b := snap.Sessions[j]
			if !b.Active {
				continue
			}
			if !overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				continue
			}
			start, end := window(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
			shared := sharedResourceCount(resources[a.ID], resources[b.ID])
			attendees := sharedAttendeeCount(registered[a.ID], registered[b.ID])
			secondary := b.ID
			out = append(out, model.ScheduleConflict{
				EventID:            snap.EventID,
				Type:               model.ConflictTimeOverlap,
				Severity:           Classify(model.ConflictTimeOverlap, shared, attendees),
				PrimarySessionID:   a.ID,
				SecondarySessionID: &secondary,
				ConflictStart:      &start,
				ConflictEnd:        &end,
				AffectedCount:      attendees,
				CanAutoResolve:     false,
				ResolutionStatus:   model.ResolutionUnresolved,
				IsActive:           true,
			})
		}
	}
	return out
}

// DetectResourceConflicts flags pairs of bookings double-booking the same
// resource over strictly overlapping windows. Reported regardless of whether
// any attendee is in both sessions.
func DetectResourceConflicts(snap *Snapshot) []model.ScheduleConflict {
	registered := registeredBySession(snap.Registrations)

	byResource := make(map[string][]model.ResourceBooking)
	var order []string
	for _, b := range snap.Bookings {
		if b.Status == model.BookingCancelled {
			continue
		}
		if _, seen := byResource[b.ResourceID]; !seen {
			order = append(order, b.ResourceID)
		}
		byResource[b.ResourceID] = append(byResource[b.ResourceID], b)
	}
	sort.Strings(order)

	var out []model.ScheduleConflict
	for _, resourceID := range order {
		bookings := byResource[resourceID]
		for i := 0; i < len(bookings); i++ {
			for j := i + 1; j < len(bookings); j++ {
				a, b := bookings[i], bookings[j]
				if !overlaps(a.BookingStart, a.BookingEnd, b.BookingStart, b.BookingEnd) {
					continue
				}
				start, end := window(a.BookingStart, a.BookingEnd, b.BookingStart, b.BookingEnd)
				rid := resourceID
				secondary := b.SessionID
				affected := len(registered[a.SessionID]) + len(registered[b.SessionID])
				out = append(out, model.ScheduleConflict{
					EventID:            snap.EventID,
					Type:               model.ConflictResource,
					Severity:           Classify(model.ConflictResource, 1, 0),
					PrimarySessionID:   a.SessionID,
					SecondarySessionID: &secondary,
					ResourceID:         &rid,
					ConflictStart:      &start,
					ConflictEnd:        &end,
					AffectedCount:      affected,
					CanAutoResolve:     false,
					ResolutionStatus:   model.ResolutionUnresolved,
					IsActive:           true,
				})
			}
		}
	}
	return out
}

// DetectCapacityConflicts flags sessions whose REGISTERED head-count exceeds
// capacity. Sessions without a capacity are unbounded and skipped. These are
// the only conflicts the engine may remediate unattended.
func DetectCapacityConflicts(snap *Snapshot) []model.ScheduleConflict {
	registered := registeredBySession(snap.Registrations)

	var out []model.ScheduleConflict
	for _, s := range snap.Sessions {
		if !s.Active || s.Capacity == nil {
			continue
		}
		count := len(registered[s.ID])
		if count <= *s.Capacity {
			continue
		}
		strategy := model.StrategyCapacityRebalance
		out = append(out, model.ScheduleConflict{
			EventID:                snap.EventID,
			Type:                   model.ConflictCapacityExceeded,
			Severity:               Classify(model.ConflictCapacityExceeded, 0, 0),
			PrimarySessionID:       s.ID,
			AffectedCount:          count - *s.Capacity,
			CanAutoResolve:         true,
			AutoResolutionStrategy: &strategy,
			ResolutionStatus:       model.ResolutionUnresolved,
			IsActive:               true,
		})
	}
	return out
}

// DetectUserConflicts flags, per registrant, every pair of their REGISTERED
// sessions with strictly overlapping intervals. One conflict per overlapping
// pair, carrying the registration id.
func DetectUserConflicts(snap *Snapshot) []model.ScheduleConflict {
	sessions := make(map[string]model.Session, len(snap.Sessions))
	for _, s := range snap.Sessions {
		sessions[s.ID] = s
	}

	byRegistrant := make(map[string][]model.Session)
	for _, reg := range snap.Registrations {
		if reg.Status != model.StatusRegistered {
			continue
		}
		s, ok := sessions[reg.SessionID]
		if !ok || !s.Active {
			continue
		}
		byRegistrant[reg.RegistrationID] = append(byRegistrant[reg.RegistrationID], s)
	}

	registrants := make([]string, 0, len(byRegistrant))
	for id := range byRegistrant {
		registrants = append(registrants, id)
	}
	sort.Strings(registrants)

	var out []model.ScheduleConflict
	for _, registrationID := range registrants {
		owned := byRegistrant[registrationID]
		sort.Slice(owned, func(i, j int) bool {
			if owned[i].StartTime.Equal(owned[j].StartTime) {
				return owned[i].ID < owned[j].ID
			}
			return owned[i].StartTime.Before(owned[j].StartTime)
		})
		for i := 0; i < len(owned); i++ {
			for j := i + 1; j < len(owned); j++ {
				a, b := owned[i], owned[j]
				if !overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
					continue
				}
				start, end := window(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
				rid := registrationID
				secondary := b.ID
				strategy := model.StrategyAcknowledge
				out = append(out, model.ScheduleConflict{
					EventID:                snap.EventID,
					Type:                   model.ConflictUser,
					Severity:               Classify(model.ConflictUser, 0, 1),
					PrimarySessionID:       a.ID,
					SecondarySessionID:     &secondary,
					RegistrationID:         &rid,
					ConflictStart:          &start,
					ConflictEnd:            &end,
					AffectedCount:          1,
					CanAutoResolve:         true,
					AutoResolutionStrategy: &strategy,
					ResolutionStatus:       model.ResolutionUnresolved,
					IsActive:               true,
				})
			}
		}
	}
	return out
}

func resourcesBySession(bookings []model.ResourceBooking) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, b := range bookings {
		if b.Status == model.BookingCancelled {
			continue
		}
		set := out[b.SessionID]
		if set == nil {
			set = make(map[string]bool)
			out[b.SessionID] = set
		}
		set[b.ResourceID] = true
	}
	return out
}

func registeredBySession(regs []model.SessionRegistration) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, r := range regs {
		if r.Status != model.StatusRegistered {
			continue
		}
		set := out[r.SessionID]
		if set == nil {
			set = make(map[string]bool)
			out[r.SessionID] = set
		}
		set[r.RegistrationID] = true
	}
	return out
}

func sharedResourceCount(a, b map[string]bool) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for id := range a {
		if b[id] {
			n++
		}
	}
	return n
}

func sharedAttendeeCount(a, b map[string]bool) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for id := range a {
		if b[id] {
			n++
		}
	}
	return n
}
