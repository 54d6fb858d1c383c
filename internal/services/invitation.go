package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventlottery/internal/domain"
)

type invitationService struct {
	eventRepo      domain.EventRepository
	invitationRepo domain.InvitationRepository
	dispatcher     domain.NotificationDispatcher
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewInvitationService(
	eventRepo domain.EventRepository,
	invitationRepo domain.InvitationRepository,
	dispatcher domain.NotificationDispatcher,
	logger *slog.Logger,
	timeout time.Duration,
) domain.InvitationService {
	return &invitationService{
		eventRepo:      eventRepo,
		invitationRepo: invitationRepo,
		dispatcher:     dispatcher,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *invitationService) Accept(ctx context.Context, invitationID, userID string) (domain.AcceptOutcome, *domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, domain.ErrNotFound
		}
		return 0, nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.UserID != userID {
		return 0, nil, domain.ErrForbidden
	}

	outcome, inv, err := s.invitationRepo.Accept(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("accept invitation: %w", err)
	}

	switch outcome {
	case domain.AcceptConfirmed:
		s.notify(ctx, inv.EventID, func(event *domain.Event) {
			s.dispatcher.InvitationAccepted(ctx, event, userID)
		})
	case domain.AcceptSlotLost:
		s.notify(ctx, inv.EventID, func(event *domain.Event) {
			s.dispatcher.SlotLost(ctx, event, userID)
		})
	}
	return outcome, inv, nil
}

func (s *invitationService) Decline(ctx context.Context, invitationID, userID string) (*domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.UserID != userID {
		return nil, domain.ErrForbidden
	}
	alreadyDeclined := inv.Status == domain.InvitationDeclined

	inv, err = s.invitationRepo.Decline(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("decline invitation: %w", err)
	}
	if !alreadyDeclined {
		s.notify(ctx, inv.EventID, func(event *domain.Event) {
			s.dispatcher.InvitationDeclined(ctx, event, userID)
		})
	}
	return inv, nil
}

// ExpireOverdue expires every PENDING invitation whose acceptance deadline
// has passed. Invoked periodically by the external scheduler collaborator;
// per-invitation failures are logged and skipped so one bad row cannot
// stall the sweep.
func (s *invitationService) ExpireOverdue(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	overdue, err := s.invitationRepo.ListPendingSentBefore(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("list overdue invitations: %w", err)
	}

	expired := 0
	for _, inv := range overdue {
		if _, err := s.invitationRepo.Expire(ctx, inv.ID); err != nil {
			// Raced with an accept or decline; skip.
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			s.logger.Warn("expire invitation failed", "invitation_id", inv.ID, "err", err)
			continue
		}
		expired++
		userID := inv.UserID
		s.notify(ctx, inv.EventID, func(event *domain.Event) {
			s.dispatcher.InvitationExpired(ctx, event, userID)
		})
	}
	return expired, nil
}

func (s *invitationService) ListMyInvitations(ctx context.Context, userID string) ([]*domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	invs, err := s.invitationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list invitations by user: %w", err)
	}
	return invs, nil
}

func (s *invitationService) ListEventInvitations(ctx context.Context, eventID, ownerID, status string) ([]*domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	switch status {
	case "", domain.InvitationPending, domain.InvitationAccepted, domain.InvitationDeclined, domain.InvitationExpired:
	default:
		return nil, domain.ErrInvalidInput
	}
	invs, err := s.invitationRepo.ListByEventAndStatus(ctx, eventID, status)
	if err != nil {
		return nil, fmt.Errorf("list event invitations: %w", err)
	}
	return invs, nil
}

// notify resolves the event for notification copy and runs fn with it.
// Dispatch is decoupled from the committed transition: a lookup failure is
// logged, never surfaced.
func (s *invitationService) notify(ctx context.Context, eventID string, fn func(event *domain.Event)) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		s.logger.Warn("event lookup for notification failed", "event_id", eventID, "err", err)
		return
	}
	fn(event)
}
