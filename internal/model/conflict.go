package model

import "time"

// ConflictType identifies which detector produced a conflict.
type ConflictType string

const (
	ConflictTimeOverlap      ConflictType = "TIME_OVERLAP"
	ConflictResource         ConflictType = "RESOURCE_CONFLICT"
	ConflictCapacityExceeded ConflictType = "CAPACITY_EXCEEDED"
	ConflictUser             ConflictType = "USER_CONFLICT"
)

// Severity grades how disruptive a conflict is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ResolutionStatus is the resolution state machine position of a conflict.
//
// Transitions: UNRESOLVED → RESOLVED (manual or capacity auto-resolve),
// UNRESOLVED → ACKNOWLEDGED (user-conflict auto path),
// ACKNOWLEDGED → RESOLVED (subsequent manual resolution).
// RESOLVED is terminal.
type ResolutionStatus string

const (
	ResolutionUnresolved   ResolutionStatus = "UNRESOLVED"
	ResolutionAcknowledged ResolutionStatus = "ACKNOWLEDGED"
	ResolutionResolved     ResolutionStatus = "RESOLVED"
)

// Auto-resolution strategies recorded on auto-resolvable conflicts.
const (
	StrategyCapacityRebalance = "CAPACITY_REBALANCE"
	StrategyAcknowledge       = "ACKNOWLEDGE"
)

// ScheduleConflict is a detected scheduling inconsistency. Rows are created
// by detection, status-mutated by the resolution engine, and soft-retired
// (is_active=false) when the underlying data goes stale — never deleted.
type ScheduleConflict struct {
	ID                     string           `json:"id"`
	EventID                string           `json:"event_id"`
	Type                   ConflictType     `json:"type"`
	Severity               Severity         `json:"severity"`
	PrimarySessionID       string           `json:"primary_session_id"`
	SecondarySessionID     *string          `json:"secondary_session_id,omitempty"`
	ResourceID             *string          `json:"resource_id,omitempty"`
	RegistrationID         *string          `json:"registration_id,omitempty"`
	ConflictStart          *time.Time       `json:"conflict_start,omitempty"`
	ConflictEnd            *time.Time       `json:"conflict_end,omitempty"`
	AffectedCount          int              `json:"affected_count"`
	CanAutoResolve         bool             `json:"can_auto_resolve"`
	AutoResolutionStrategy *string          `json:"auto_resolution_strategy,omitempty"`
	ResolutionStatus       ResolutionStatus `json:"resolution_status"`
	DetectedAt             time.Time        `json:"detected_at"`
	ResolvedAt             *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy             *string          `json:"resolved_by,omitempty"`
	IsActive               bool             `json:"is_active"`
}

// ConflictResolution is an append-only audit record of a resolution action.
type ConflictResolution struct {
	ID                    string    `json:"id"`
	ConflictID            string    `json:"conflict_id"`
	ResolutionType        string    `json:"resolution_type"`
	Description           string    `json:"description"`
	ImplementedBy         string    `json:"implemented_by"`
	AffectedSessions      int       `json:"affected_sessions"`
	AffectedRegistrations int       `json:"affected_registrations"`
	AffectedResources     int       `json:"affected_resources"`
	CreatedAt             time.Time `json:"created_at"`
}

// ResolveConflictRequest is the payload for manually resolving a conflict.
type ResolveConflictRequest struct {
	ResolutionType string `json:"resolution_type"`
	Description    string `json:"description"`
	ResolvedBy     string `json:"resolved_by"`
}

// PromoteRequest is the payload for promoting waitlisted registrations.
type PromoteRequest struct {
	RegistrationIDs []string `json:"registration_ids"`
	Reason          string   `json:"reason"`
}

// ConflictSummary is the per-event rollup of stored conflicts.
type ConflictSummary struct {
	EventID             string               `json:"event_id"`
	Total               int                  `json:"total"`
	ByType              map[ConflictType]int `json:"by_type"`
	BySeverity          map[Severity]int     `json:"by_severity"`
	Unresolved          int                  `json:"unresolved"`
	Critical            int                  `json:"critical"`
	AutoResolvable      int                  `json:"auto_resolvable"` // auto-resolvable and still unresolved
	OldestUnresolvedAt  *time.Time           `json:"oldest_unresolved_at,omitempty"`
	MeanResolutionHours *float64             `json:"mean_resolution_hours,omitempty"`
}

// ResourceConflictCount ranks a resource by how many conflicts reference it.
type ResourceConflictCount struct {
	ResourceID string `json:"resource_id"`
	Count      int    `json:"count"`
}

// SessionConflictCount ranks a session by how many conflicts reference it.
type SessionConflictCount struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

// ConflictAnalytics is the per-event analytics view over stored conflicts.
type ConflictAnalytics struct {
	EventID         string                  `json:"event_id"`
	ConflictRate    float64                 `json:"conflict_rate"`    // conflicts per session
	ResolutionRate  float64                 `json:"resolution_rate"`  // percent resolved
	MostCommonType  *ConflictType           `json:"most_common_type,omitempty"`
	TopResources    []ResourceConflictCount `json:"top_resources"`
	TopSessions     []SessionConflictCount  `json:"top_sessions"`
	Recommendations []string                `json:"recommendations"`
}
