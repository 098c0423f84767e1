package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// CapacityWaitlistManager promotes waitlisted registrations into open
// capacity. The actual promotion is one locked transaction in the store;
// this layer validates, selects candidates, and isolates batch failures.
type CapacityWaitlistManager struct {
	capacity CapacityStore
	log      *slog.Logger
}

// NewCapacityWaitlistManager constructs a CapacityWaitlistManager.
func NewCapacityWaitlistManager(capacity CapacityStore, log *slog.Logger) *CapacityWaitlistManager {
	return &CapacityWaitlistManager{capacity: capacity, log: log}
}

// PromoteFromWaitlist promotes up to the session's currently available spots
// from the supplied candidates, in the caller's order. Available spots are
// recomputed under the row lock immediately before acting, so the result may
// be fewer promotions than candidates supplied.
func (m *CapacityWaitlistManager) PromoteFromWaitlist(ctx context.Context, sessionID string, candidateIDs []string, reason string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id is required")
	}
	if len(candidateIDs) == 0 {
		return 0, fmt.Errorf("registration_ids is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "manual promotion"
	}

	promoted, err := m.capacity.Promote(ctx, sessionID, candidateIDs, reason)
	if err != nil {
		return 0, err
	}
	m.log.Info("waitlist promotion complete",
		"session_id", sessionID, "candidates", len(candidateIDs), "promoted", promoted, "reason", reason)
	return promoted, nil
}

// AutoPromoteEligibleSessions promotes FIFO from the waitlist of every
// session with waitlisting and auto-promote enabled, open spots, and a
// non-empty waitlist. Each session is its own transaction; one session's
// failure is collected and the sweep continues.
func (m *CapacityWaitlistManager) AutoPromoteEligibleSessions(ctx context.Context) ([]PromotionOutcome, []error, error) {
	sessions, err := m.capacity.AutoPromotable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list eligible sessions: %w", err)
	}

	var outcomes []PromotionOutcome
	var failures []error
	for _, s := range sessions {
		waitlist, err := m.capacity.Waitlisted(ctx, s.SessionID)
		if err != nil {
			m.log.Error("waitlist load failed", "session_id", s.SessionID, "error", err)
			failures = append(failures, fmt.Errorf("session %s: %w", s.SessionID, err))
			continue
		}
		if len(waitlist) == 0 {
			continue
		}
		ids := make([]string, len(waitlist))
		for i, reg := range waitlist {
			ids[i] = reg.RegistrationID
		}
		promoted, err := m.capacity.Promote(ctx, s.SessionID, ids, "auto-promote sweep")
		if err != nil {
			m.log.Error("auto-promotion failed", "session_id", s.SessionID, "error", err)
			failures = append(failures, fmt.Errorf("session %s: %w", s.SessionID, err))
			continue
		}
		outcomes = append(outcomes, PromotionOutcome{SessionID: s.SessionID, Promoted: promoted})
	}

	m.log.Info("auto-promote sweep complete", "sessions", len(outcomes), "failed", len(failures))
	return outcomes, failures, nil
}

// PromotionOutcome reports one session's result in the auto-promote sweep.
type PromotionOutcome struct {
	SessionID string `json:"session_id"`
	Promoted  int    `json:"promoted"`
}
