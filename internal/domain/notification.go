package domain

import "context"

// NotificationCategory tags a notification request with the lifecycle
// event that produced it.
type NotificationCategory string

const (
	NotificationSelected    NotificationCategory = "selected"
	NotificationNotSelected NotificationCategory = "not_selected"
	NotificationAccepted    NotificationCategory = "accepted"
	NotificationDeclined    NotificationCategory = "declined"
	NotificationExpired     NotificationCategory = "expired"
	NotificationBroadcast   NotificationCategory = "broadcast"
)

// NotificationRequest is the record handed to the outbound notification
// collaborator, which persists an inbox record per recipient and attempts
// push delivery. The core's contract ends at producing this request.
// swagger:model NotificationRequest
type NotificationRequest struct {
	ID           string               `json:"id"`
	RecipientIDs []string             `json:"recipient_ids"`
	Title        string               `json:"title"`
	Body         string               `json:"body"`
	EventID      string               `json:"event_id,omitempty"`
	Category     NotificationCategory `json:"category"`
}

// Notifier is the port to the outbound notification collaborator.
// Dispatch is best-effort: the collaborator tolerates per-recipient
// failure without failing the batch, and callers never let a Dispatch
// error roll back the lifecycle transition that triggered it.
type Notifier interface {
	Dispatch(ctx context.Context, req *NotificationRequest) error
}

// NotificationDispatcher translates lifecycle events into notification
// requests. Every method is fire-and-forget: failures are logged and
// swallowed.
type NotificationDispatcher interface {
	EntrantsSelected(ctx context.Context, event *Event, wave int, recipientIDs []string)
	// WaveCompleted sends the once-per-wave "not selected this draw"
	// notification to the entrants left WAITING.
	WaveCompleted(ctx context.Context, event *Event, wave int, remainingIDs []string)
	InvitationAccepted(ctx context.Context, event *Event, userID string)
	InvitationDeclined(ctx context.Context, event *Event, userID string)
	// SlotLost tells an entrant their acceptance lost the capacity race.
	SlotLost(ctx context.Context, event *Event, userID string)
	// InvitationExpired tells an entrant the acceptance deadline passed.
	InvitationExpired(ctx context.Context, event *Event, userID string)
	Broadcast(ctx context.Context, event *Event, title, body string, recipientIDs []string)
}
