package conflict

import (
	"sort"

	"github.com/eventra-labs/eventra/internal/model"
)

const topN = 5

// Summarize rolls stored conflicts up into per-event counts. Inactive
// conflicts are ignored; the store filters them already, this guards again.
func Summarize(eventID string, conflicts []model.ScheduleConflict) model.ConflictSummary {
	s := model.ConflictSummary{
		EventID:    eventID,
		ByType:     make(map[model.ConflictType]int),
		BySeverity: make(map[model.Severity]int),
	}

	var resolutionHours float64
	var resolvedCount int
	for _, c := range conflicts {
		if !c.IsActive {
			continue
		}
		s.Total++
		s.ByType[c.Type]++
		s.BySeverity[c.Severity]++
		if c.Severity == model.SeverityCritical {
			s.Critical++
		}
		if c.ResolutionStatus != model.ResolutionResolved {
			s.Unresolved++
			if c.CanAutoResolve {
				s.AutoResolvable++
			}
			if s.OldestUnresolvedAt == nil || c.DetectedAt.Before(*s.OldestUnresolvedAt) {
				oldest := c.DetectedAt
				s.OldestUnresolvedAt = &oldest
			}
		} else if c.ResolvedAt != nil {
			resolutionHours += c.ResolvedAt.Sub(c.DetectedAt).Hours()
			resolvedCount++
		}
	}
	if resolvedCount > 0 {
		mean := resolutionHours / float64(resolvedCount)
		s.MeanResolutionHours = &mean
	}
	return s
}

// Analyze computes the analytics view: conflict rate per session, resolution
// rate, the dominant conflict type, the five most conflicted resources and
// sessions, and rule-based prevention recommendations. All output orderings
// are deterministic (count descending, id ascending on ties).
func Analyze(eventID string, conflicts []model.ScheduleConflict, sessionCount int) model.ConflictAnalytics {
	a := model.ConflictAnalytics{
		EventID:      eventID,
		TopResources: []model.ResourceConflictCount{},
		TopSessions:  []model.SessionConflictCount{},
	}

	byType := make(map[model.ConflictType]int)
	byResource := make(map[string]int)
	bySession := make(map[string]int)
	total, resolved := 0, 0
	for _, c := range conflicts {
		if !c.IsActive {
			continue
		}
		total++
		byType[c.Type]++
		if c.ResolutionStatus == model.ResolutionResolved {
			resolved++
		}
		if c.ResourceID != nil {
			byResource[*c.ResourceID]++
		}
		bySession[c.PrimarySessionID]++
		if c.SecondarySessionID != nil {
			bySession[*c.SecondarySessionID]++
		}
	}

	if sessionCount > 0 {
		a.ConflictRate = float64(total) / float64(sessionCount)
	}
	if total > 0 {
		a.ResolutionRate = float64(resolved) / float64(total) * 100
	}
	a.MostCommonType = mostCommonType(byType)

	for id, n := range byResource {
		a.TopResources = append(a.TopResources, model.ResourceConflictCount{ResourceID: id, Count: n})
	}
	sort.Slice(a.TopResources, func(i, j int) bool {
		if a.TopResources[i].Count == a.TopResources[j].Count {
			return a.TopResources[i].ResourceID < a.TopResources[j].ResourceID
		}
		return a.TopResources[i].Count > a.TopResources[j].Count
	})
	if len(a.TopResources) > topN {
		a.TopResources = a.TopResources[:topN]
	}

	for id, n := range bySession {
		a.TopSessions = append(a.TopSessions, model.SessionConflictCount{SessionID: id, Count: n})
	}
	sort.Slice(a.TopSessions, func(i, j int) bool {
		if a.TopSessions[i].Count == a.TopSessions[j].Count {
			return a.TopSessions[i].SessionID < a.TopSessions[j].SessionID
		}
		return a.TopSessions[i].Count > a.TopSessions[j].Count
	})
	if len(a.TopSessions) > topN {
		a.TopSessions = a.TopSessions[:topN]
	}

	a.Recommendations = recommendations(byType)
	return a
}

func mostCommonType(byType map[model.ConflictType]int) *model.ConflictType {
	var best *model.ConflictType
	bestCount := 0
	for _, t := range []model.ConflictType{
		model.ConflictCapacityExceeded,
		model.ConflictResource,
		model.ConflictTimeOverlap,
		model.ConflictUser,
	} {
		if n := byType[t]; n > bestCount {
			tt := t
			best = &tt
			bestCount = n
		}
	}
	return best
}

// recommendations are keyed off which conflict types are present — fixed
// rules, not statistics.
func recommendations(byType map[model.ConflictType]int) []string {
	var recs []string
	if byType[model.ConflictTimeOverlap] > 0 {
		recs = append(recs, "Stagger session start times to reduce schedule overlap.")
	}
	if byType[model.ConflictResource] > 0 {
		recs = append(recs, "Add buffer time between bookings of the same resource, or book an alternative resource.")
	}
	if byType[model.ConflictCapacityExceeded] > 0 {
		recs = append(recs, "Raise capacity or enable waitlists on oversubscribed sessions.")
	}
	if byType[model.ConflictUser] > 0 {
		recs = append(recs, "Notify attendees registered for overlapping sessions so they can choose one.")
	}
	if recs == nil {
		recs = []string{}
	}
	return recs
}
