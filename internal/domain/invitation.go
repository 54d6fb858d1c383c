package domain

import (
	"context"
	"time"
)

// Invitation statuses. PENDING is the only non-terminal state.
const (
	InvitationPending  = "PENDING"
	InvitationAccepted = "ACCEPTED"
	InvitationDeclined = "DECLINED"
	InvitationExpired  = "EXPIRED"
)

// EventInvitation is the authoritative record of a single draw offer. An
// entrant may accumulate invitations across waves if drawn again after a
// decline-and-backfill, but never two for the same wave.
// swagger:model EventInvitation
type EventInvitation struct {
	ID              string     `json:"id"`
	EventID         string     `json:"event_id"`
	UserID          string     `json:"user_id"`
	UserDisplayName string     `json:"user_display_name"`
	Status          string     `json:"status"`
	SentAt          time.Time  `json:"sent_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	DrawWave        int        `json:"draw_wave"`
}

// AcceptOutcome describes what an Accept call did.
type AcceptOutcome int

const (
	// AcceptConfirmed: the invitation was PENDING and a slot was free; the
	// entrant is now enrolled.
	AcceptConfirmed AcceptOutcome = iota
	// AcceptAlreadyConfirmed: the invitation was already ACCEPTED; nothing
	// changed (duplicate calls never double-increment enrolled).
	AcceptAlreadyConfirmed
	// AcceptSlotLost: capacity was consumed by a faster entrant; the
	// invitation is now EXPIRED and no counters changed.
	AcceptSlotLost
)

// InvitationRepository defines storage operations for invitations.
// Accept, Decline, and Expire are atomic state-machine transitions: the
// invitation row, the matching waitlist entry, and the event counters
// commit in one transaction.
type InvitationRepository interface {
	GetByID(ctx context.Context, id string) (*EventInvitation, error)
	ListByEventAndStatus(ctx context.Context, eventID, status string) ([]*EventInvitation, error)
	ListByUserID(ctx context.Context, userID string) ([]*EventInvitation, error)
	// ListPendingSentBefore returns PENDING invitations whose deadline
	// (sent_at + the event's acceptance_deadline_hours) passed before now.
	ListPendingSentBefore(ctx context.Context, now time.Time) ([]*EventInvitation, error)

	// Accept re-checks enrolled < capacity and either confirms the seat
	// (invitation and entry ACCEPTED, enrolled+1, waitlist_count-1) or
	// expires the invitation, all in one transaction. First committed
	// acceptance wins when capacity is the binding constraint.
	Accept(ctx context.Context, id string) (AcceptOutcome, *EventInvitation, error)
	// Decline marks invitation and entry DECLINED and vacates the waitlist
	// slot (floor decrement). Declining an already-DECLINED invitation is
	// a no-op; declining ACCEPTED or EXPIRED is ErrInvalidTransition.
	Decline(ctx context.Context, id string) (*EventInvitation, error)
	// Expire moves a PENDING invitation to EXPIRED with no counter
	// changes. The waitlist entry stays INVITED.
	Expire(ctx context.Context, id string) (*EventInvitation, error)
}

// InvitationService drives the invitation lifecycle on behalf of entrants
// and the external deadline scheduler.
type InvitationService interface {
	// Accept claims the entrant's slot. Returns the outcome so callers can
	// tell "confirmed" apart from "this spot was just taken".
	Accept(ctx context.Context, invitationID, userID string) (AcceptOutcome, *EventInvitation, error)
	// Decline turns the offer down. Terminal for this wave; the slot is
	// backfilled by a later draw, not by reinstating the decliner.
	Decline(ctx context.Context, invitationID, userID string) (*EventInvitation, error)
	// ExpireOverdue expires every PENDING invitation past its event's
	// acceptance deadline and returns how many were expired. Invoked by
	// the external timer collaborator.
	ExpireOverdue(ctx context.Context) (int, error)

	ListMyInvitations(ctx context.Context, userID string) ([]*EventInvitation, error)
	ListEventInvitations(ctx context.Context, eventID, ownerID, status string) ([]*EventInvitation, error)
}
