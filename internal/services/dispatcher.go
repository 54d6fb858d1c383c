package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"eventlottery/internal/domain"
)

// notificationDispatcher turns lifecycle events into notification requests
// for the outbound collaborator. Pure translation: it decides recipients,
// title, and body; transport and inbox persistence happen behind the
// Notifier port. Every method is fire-and-forget, called after the
// triggering transaction committed.
type notificationDispatcher struct {
	notifier domain.Notifier
	logger   *slog.Logger
}

func NewNotificationDispatcher(notifier domain.Notifier, logger *slog.Logger) domain.NotificationDispatcher {
	return &notificationDispatcher{
		notifier: notifier,
		logger:   logger,
	}
}

func (d *notificationDispatcher) EntrantsSelected(ctx context.Context, event *domain.Event, wave int, recipientIDs []string) {
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: recipientIDs,
		Title:        fmt.Sprintf("You were selected for %s!", event.Name),
		Body: fmt.Sprintf("You were drawn in wave %d. Accept your invitation within %d hours to confirm your spot.",
			wave, event.AcceptanceDeadlineHours),
		EventID:  event.ID,
		Category: domain.NotificationSelected,
	})
}

func (d *notificationDispatcher) WaveCompleted(ctx context.Context, event *domain.Event, wave int, remainingIDs []string) {
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: remainingIDs,
		Title:        fmt.Sprintf("Lottery results for %s", event.Name),
		Body:         "You were not selected this draw. You stay on the waitlist for the next wave.",
		EventID:      event.ID,
		Category:     domain.NotificationNotSelected,
	})
}

func (d *notificationDispatcher) InvitationAccepted(ctx context.Context, event *domain.Event, userID string) {
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: []string{userID},
		Title:        fmt.Sprintf("You're going to %s", event.Name),
		Body:         "Your spot is confirmed. See you there!",
		EventID:      event.ID,
		Category:     domain.NotificationAccepted,
	})
}

func (d *notificationDispatcher) InvitationDeclined(ctx context.Context, event *domain.Event, userID string) {
	// The organizer hears about declines so they can run a backfill wave.
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: []string{event.OwnerID},
		Title:        fmt.Sprintf("An invitation for %s was declined", event.Name),
		Body:         "A selected entrant declined their spot. Run another draw to backfill it.",
		EventID:      event.ID,
		Category:     domain.NotificationDeclined,
	})
}

func (d *notificationDispatcher) SlotLost(ctx context.Context, event *domain.Event, userID string) {
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: []string{userID},
		Title:        fmt.Sprintf("Update on %s", event.Name),
		Body:         "This spot was just taken by another entrant. You were not charged a slot.",
		EventID:      event.ID,
		Category:     domain.NotificationExpired,
	})
}

func (d *notificationDispatcher) InvitationExpired(ctx context.Context, event *domain.Event, userID string) {
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: []string{userID},
		Title:        fmt.Sprintf("Your invitation for %s expired", event.Name),
		Body: fmt.Sprintf("The %d-hour acceptance window closed before you responded.",
			event.AcceptanceDeadlineHours),
		EventID:  event.ID,
		Category: domain.NotificationExpired,
	})
}

func (d *notificationDispatcher) Broadcast(ctx context.Context, event *domain.Event, title, body string, recipientIDs []string) {
	d.send(ctx, &domain.NotificationRequest{
		RecipientIDs: recipientIDs,
		Title:        title,
		Body:         body,
		EventID:      event.ID,
		Category:     domain.NotificationBroadcast,
	})
}

func (d *notificationDispatcher) send(ctx context.Context, req *domain.NotificationRequest) {
	if len(req.RecipientIDs) == 0 {
		return
	}
	req.ID = uuid.NewString()
	if err := d.notifier.Dispatch(ctx, req); err != nil {
		// Never propagated: delivery failure must not roll back the
		// lifecycle transition that produced the request.
		d.logger.Warn("notification dispatch failed",
			"request_id", req.ID,
			"category", string(req.Category),
			"event_id", req.EventID,
			"recipients", len(req.RecipientIDs),
			"err", err,
		)
	}
}
