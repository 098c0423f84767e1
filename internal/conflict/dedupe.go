package conflict

import "github.com/eventra-labs/eventra/internal/model"

type dedupeKey struct {
	Type             model.ConflictType
	PrimarySessionID string
}

// Dedupe filters candidates against existing conflicts: a candidate whose
// (type, primary session) matches a stored conflict that is still active and
// UNRESOLVED is a duplicate and dropped, preserving the original row and its
// detectedAt. Candidates are checked in order and accepted keys join the seen
// set, so a second candidate with the same key inside one detection run is
// also suppressed.
//
// The key deliberately ignores the secondary session id: a session that was
// secondary in an earlier conflict and primary in a later one is not treated
// as a duplicate. That asymmetry matches the shipped lookup and stays until
// product says otherwise.
func Dedupe(candidates, existing []model.ScheduleConflict) []model.ScheduleConflict {
	seen := make(map[dedupeKey]bool, len(existing))
	for _, c := range existing {
		if c.IsActive && c.ResolutionStatus == model.ResolutionUnresolved {
			seen[dedupeKey{c.Type, c.PrimarySessionID}] = true
		}
	}

	fresh := make([]model.ScheduleConflict, 0, len(candidates))
	for _, c := range candidates {
		key := dedupeKey{c.Type, c.PrimarySessionID}
		if seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, c)
	}
	return fresh
}
