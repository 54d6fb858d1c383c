package domain

import (
	"context"
	"time"
)

// Waitlist entry statuses. Transitions are forward-only: WAITING may move
// to INVITED (drawn), ACCEPTED (direct sign-up) or CANCELLED (leave);
// INVITED moves to ACCEPTED, DECLINED, or CANCELLED. A DECLINED entry is
// never reinstated to WAITING; backfill happens by drawing a new WAITING
// entrant in a later wave.
const (
	StatusWaiting   = "WAITING"
	StatusInvited   = "INVITED"
	StatusAccepted  = "ACCEPTED"
	StatusDeclined  = "DECLINED"
	StatusCancelled = "CANCELLED"

	// Deprecated: StatusSelected is a legacy alias for StatusInvited kept
	// for readers of old records. It is never written.
	StatusSelected = "SELECTED"
)

// WaitlistEntry represents one user's place in an event's queue. UserName
// is a denormalized snapshot taken at join time; RenameEntrant refreshes
// it best-effort. Position is informational queue order, not a uniqueness
// constraint.
// swagger:model WaitlistEntry
type WaitlistEntry struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
	JoinedAt time.Time `json:"joined_at"`
	Status   string    `json:"status"`
	Position int       `json:"position"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Active reports whether the entry still occupies a queue or confirmed
// slot (WAITING, INVITED, or ACCEPTED).
func (e *WaitlistEntry) Active() bool {
	switch e.Status {
	case StatusWaiting, StatusInvited, StatusAccepted:
		return true
	}
	return false
}

// WaitlistRepository defines storage operations for waitlist entries.
// Join, SignUpDirect, Leave, DeleteByUser, and DeleteByEvent are atomic:
// the entry mutation and the event counter adjustment commit in one
// transaction.
type WaitlistRepository interface {
	// Join creates a WAITING entry and increments the event's
	// waitlist_count in the same transaction. Returns ErrCapacityExceeded
	// when the waitlist is full, ErrNotFound when the event is missing or
	// inactive.
	Join(ctx context.Context, entry *WaitlistEntry) error
	// SignUpDirect creates an ACCEPTED entry and increments enrolled,
	// bypassing the queue. Returns ErrCapacityExceeded when the event is
	// full. Used for events without a lottery step.
	SignUpDirect(ctx context.Context, entry *WaitlistEntry) error
	// Leave cancels an entry. Valid only from WAITING or INVITED; a
	// WAITING leave also decrements waitlist_count.
	Leave(ctx context.Context, entryID string) (*WaitlistEntry, error)

	GetByID(ctx context.Context, entryID string) (*WaitlistEntry, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*WaitlistEntry, error)
	// ListWaitingByEvent returns WAITING entries in joinedAt ascending
	// (queue) order.
	ListWaitingByEvent(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	// ListChosenByEvent returns INVITED and ACCEPTED entries.
	ListChosenByEvent(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	// ListByEventID returns every entry for the event; the watch stream
	// uses it as the snapshot source.
	ListByEventID(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	ListByUserID(ctx context.Context, userID string) ([]*WaitlistEntry, error)

	// UpdateUserName rewrites the denormalized name on all of the user's
	// entries and returns how many rows changed. Best-effort; not atomic
	// across entries.
	UpdateUserName(ctx context.Context, userID, newName string) (int, error)
	// DeleteByUser hard-deletes all of the user's entries and reconciles
	// the affected event counters. Idempotent.
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteByEvent hard-deletes all entries for the event. Idempotent.
	DeleteByEvent(ctx context.Context, eventID string) error
}

// WaitlistService defines entrant-facing queue operations.
type WaitlistService interface {
	// Join puts the user on the event's waitlist. Idempotent: if the user
	// already holds an active entry it is returned with created == false.
	Join(ctx context.Context, eventID, userID, userName string) (*WaitlistEntry, bool, error)
	// SignUpDirect confirms the user immediately, bypassing the lottery.
	SignUpDirect(ctx context.Context, eventID, userID, userName string) (*WaitlistEntry, bool, error)
	// Leave cancels the caller's entry. Only the entry owner may leave.
	Leave(ctx context.Context, entryID, userID string) error
	// RenameEntrant updates the denormalized name across the user's entries.
	RenameEntrant(ctx context.Context, userID, newName string) error
	// PurgeEntrant removes every entry for the user across all events.
	PurgeEntrant(ctx context.Context, userID string) error
	// PurgeEvent removes every entry for the event. Organizer only.
	PurgeEvent(ctx context.Context, eventID, ownerID string) error

	ListWaiting(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	ListChosen(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	MyHistory(ctx context.Context, userID string) ([]*WaitlistEntry, error)
}

// WaitlistSubscription is a cancellable stream of full waitlist snapshots
// for one event. Updates yields the current entries on subscribe and again
// after every backing change; the channel closes after Close or when the
// subscription's context ends.
type WaitlistSubscription interface {
	Updates() <-chan []*WaitlistEntry
	Err() error
	Close() error
}

// WaitlistWatcher produces WaitlistSubscriptions.
type WaitlistWatcher interface {
	Watch(ctx context.Context, eventID string) (WaitlistSubscription, error)
}
