package conflict

import "github.com/eventra-labs/eventra/internal/model"

// Classify maps a conflict's context to a severity level.
//
// Time overlaps escalate with contention: sharing a resource is an ERROR,
// sharing only attendees a WARNING, a bare overlap is informational.
// Resource double-bookings and capacity breaches are always errors; user
// double-bookings are always warnings.
func Classify(t model.ConflictType, sharedResources, sharedAttendees int) model.Severity {
	switch t {
	case model.ConflictTimeOverlap:
		if sharedResources > 0 {
			return model.SeverityError
		}
		if sharedAttendees > 0 {
			return model.SeverityWarning
		}
		return model.SeverityInfo
	case model.ConflictResource, model.ConflictCapacityExceeded:
		return model.SeverityError
	case model.ConflictUser:
		return model.SeverityWarning
	}
	return model.SeverityInfo
}
