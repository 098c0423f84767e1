package conflict

import (
	"sort"

	"github.com/eventra-labs/eventra/internal/model"
)

// Overflow returns the registrations that exceed a session's capacity:
// registrations are ordered by registeredAt ascending (ties broken by
// registration id for stable output) and everything past the first
// `capacity` entries is overflow — the most recently registered lose their
// seats. The input slice is not modified.
func Overflow(regs []model.SessionRegistration, capacity int) []model.SessionRegistration {
	if capacity < 0 {
		capacity = 0
	}
	if len(regs) <= capacity {
		return nil
	}
	ordered := make([]model.SessionRegistration, len(regs))
	copy(ordered, regs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RegisteredAt.Equal(ordered[j].RegisteredAt) {
			return ordered[i].RegistrationID < ordered[j].RegistrationID
		}
		return ordered[i].RegisteredAt.Before(ordered[j].RegisteredAt)
	})
	return ordered[capacity:]
}

// PromotionQuota bounds a promotion run by the spots actually open:
// never more candidates than availableSpots, recomputed by the caller
// immediately before acting.
func PromotionQuota(availableSpots, candidates int) int {
	if availableSpots < 0 {
		availableSpots = 0
	}
	return min(availableSpots, candidates)
}
