package domain

import (
	"context"
	"time"
)

// Event represents a capacity-constrained scheduled event. Enrolled and
// WaitlistCount are the authoritative counters; they are only ever mutated
// through CapacityLedger operations inside a transaction, so that
// 0 <= Enrolled <= Capacity and 0 <= WaitlistCount <= WaitlistCapacity
// hold at all times.
// swagger:model Event
type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OwnerID      string    `json:"owner_id"`
	EventCode    string    `json:"event_code"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Date         time.Time `json:"date"`

	Capacity         int `json:"capacity"`
	Enrolled         int `json:"enrolled"`
	WaitlistCapacity int `json:"waitlist_capacity"`
	WaitlistCount    int `json:"waitlist_count"`

	// SamplingCount is the default number of entrants drawn per lottery wave.
	SamplingCount int `json:"sampling_count"`
	// DrawWave counts completed lottery waves. Monotonically increasing.
	DrawWave int `json:"draw_wave"`
	// AcceptanceDeadlineHours is exposed for the external scheduler that
	// expires overdue invitations.
	AcceptanceDeadlineHours int  `json:"acceptance_deadline_hours"`
	IsActive                bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemainingCapacity returns how many confirmed slots are still open.
func (e *Event) RemainingCapacity() int {
	if n := e.Capacity - e.Enrolled; n > 0 {
		return n
	}
	return 0
}

// EventRepository defines storage operations for events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByEventCode(ctx context.Context, eventCode string) (*Event, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	// ListActive returns active events ordered by date ascending.
	ListActive(ctx context.Context) ([]*Event, error)
	// SetActive flips the soft-delete flag.
	SetActive(ctx context.Context, id string, active bool) error
}

// CapacityLedger exposes the atomic counter operations on the event
// record. All mutations of Event.Enrolled and Event.WaitlistCount route
// through this component; no other component writes the counters directly.
type CapacityLedger interface {
	IncrementEnrolled(ctx context.Context, eventID string) error
	// DecrementEnrolled floors at zero: decrementing an event with
	// enrolled == 0 is a silent no-op, not an error.
	DecrementEnrolled(ctx context.Context, eventID string) error
	SetWaitlistCount(ctx context.Context, eventID string, count int) error
	// ResetAttendance zeroes both enrolled and waitlist_count, used when
	// re-running an event.
	ResetAttendance(ctx context.Context, eventID string) error
}

// EventService defines organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListMyEvents(ctx context.Context, ownerID string) ([]*Event, error)
	ListActiveEvents(ctx context.Context) ([]*Event, error)
	// RemoveEvent soft-deletes the event and purges its waitlist entries.
	RemoveEvent(ctx context.Context, eventID, ownerID string) error
	// ResetAttendance zeroes the counters so the event can be re-run.
	ResetAttendance(ctx context.Context, eventID, ownerID string) error
	// Broadcast requests a notification from the organizer to the given
	// entrants. Delivery is best-effort.
	Broadcast(ctx context.Context, eventID, ownerID, title, body string, recipientIDs []string) error
}
