package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"eventlottery/internal/domain"
)

type lotteryService struct {
	eventRepo      domain.EventRepository
	drawRepo       domain.DrawRepository
	dispatcher     domain.NotificationDispatcher
	emailService   domain.EmailService
	selector       domain.WinnerSelector
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewLotteryService creates a LotteryService using uniform random
// selection. The draw transaction lives in the DrawRepository; this
// service adds ownership checks and the post-commit fan-out.
func NewLotteryService(
	eventRepo domain.EventRepository,
	drawRepo domain.DrawRepository,
	dispatcher domain.NotificationDispatcher,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.LotteryService {
	return &lotteryService{
		eventRepo:      eventRepo,
		drawRepo:       drawRepo,
		dispatcher:     dispatcher,
		emailService:   emailService,
		selector:       UniformSelector,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// UniformSelector picks n entries uniformly at random without replacement.
// Every WAITING entrant has equal probability regardless of queue position
// or wait time.
func UniformSelector(waiting []*domain.WaitlistEntry, n int) []*domain.WaitlistEntry {
	if n > len(waiting) {
		n = len(waiting)
	}
	selected := make([]*domain.WaitlistEntry, 0, n)
	for _, i := range rand.Perm(len(waiting))[:n] {
		selected = append(selected, waiting[i])
	}
	return selected
}

func (s *lotteryService) RunLottery(ctx context.Context, eventID, ownerID string, numberOfWinners int) (*domain.DrawResult, error) {
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
	if numberOfWinners <= 0 {
		numberOfWinners = event.SamplingCount
	}

	result, err := s.drawRepo.RunDraw(ctx, eventID, numberOfWinners, s.selector)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("run draw: %w", err)
	}
	if result.NoOp {
		return result, nil
	}

	// The wave is committed; everything below is best-effort fan-out and
	// must not fail the draw.
	selectedIDs := make([]string, 0, len(result.Invitations))
	for _, inv := range result.Invitations {
		selectedIDs = append(selectedIDs, inv.UserID)
	}
	s.dispatcher.EntrantsSelected(ctx, event, result.Wave, selectedIDs)
	// One batch per completed wave, after all invitations exist, so a
	// wave never produces duplicate loser notifications.
	s.dispatcher.WaveCompleted(ctx, event, result.Wave, result.RemainingUserIDs)

	if s.emailService != nil && event.ContactEmail != "" {
		data := &domain.DrawSummaryEmailData{
			ContactEmail:  event.ContactEmail,
			EventName:     event.Name,
			Wave:          result.Wave,
			InvitedCount:  len(result.Invitations),
			WaitingCount:  len(result.RemainingUserIDs),
			DeadlineHours: event.AcceptanceDeadlineHours,
		}
		if err := s.emailService.SendDrawSummary(ctx, data); err != nil {
			s.logger.Warn("draw summary email failed", "event_id", eventID, "err", err)
		}
	}
	return result, nil
}
