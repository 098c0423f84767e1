// Package model defines the core domain types for the schedule conflict engine.
package model

import "time"

// RegistrationStatus is the lifecycle state of a session registration.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "REGISTERED"
	StatusWaitlist   RegistrationStatus = "WAITLIST"
	StatusAttended   RegistrationStatus = "ATTENDED"
)

// BookingStatus is the lifecycle state of a resource booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingPending   BookingStatus = "PENDING"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Session is a time-boxed scheduled activity within an event.
// Owned by event CRUD; read-only to the conflict engine.
type Session struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Capacity  *int       `json:"capacity,omitempty"` // nil = unbounded
	Active    bool       `json:"active"`
}

// Overlaps reports whether two sessions strictly overlap in time.
// Touching endpoints (one ends exactly when the other starts) do not overlap.
func (s *Session) Overlaps(o *Session) bool {
	return s.StartTime.Before(o.EndTime) && o.StartTime.Before(s.EndTime)
}

// ResourceBooking reserves a resource (room, equipment) for a session
// over a time window. Read-only to the conflict engine.
type ResourceBooking struct {
	SessionID         string        `json:"session_id"`
	ResourceID        string        `json:"resource_id"`
	BookingStart      time.Time     `json:"booking_start"`
	BookingEnd        time.Time     `json:"booking_end"`
	QuantityAllocated int           `json:"quantity_allocated"`
	Status            BookingStatus `json:"status"`
}

// SessionRegistration links an attendee's event registration to a session.
type SessionRegistration struct {
	SessionID            string             `json:"session_id"`
	RegistrationID       string             `json:"registration_id"`
	Status               RegistrationStatus `json:"status"`
	WaitlistPosition     *int               `json:"waitlist_position,omitempty"`
	RegisteredAt         time.Time          `json:"registered_at"`
	WaitlistRegisteredAt *time.Time         `json:"waitlist_registered_at,omitempty"`
	Notes                string             `json:"notes,omitempty"`
}

// SessionCapacity tracks occupancy counters for a capacity-limited session.
type SessionCapacity struct {
	SessionID            string `json:"session_id"`
	MaximumCapacity      int    `json:"maximum_capacity"`
	MinimumCapacity      int    `json:"minimum_capacity"`
	CurrentRegistrations int    `json:"current_registrations"`
	CurrentWaitlistCount int    `json:"current_waitlist_count"`
	AvailableSpots       int    `json:"available_spots"`
	WaitlistEnabled      bool   `json:"waitlist_enabled"`
	AutoPromote          bool   `json:"auto_promote"`
}

// Recompute refreshes AvailableSpots from the current counters.
// Must be called after every mutation; the stored value is never stale.
func (c *SessionCapacity) Recompute() {
	c.AvailableSpots = max(0, c.MaximumCapacity-c.CurrentRegistrations)
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
