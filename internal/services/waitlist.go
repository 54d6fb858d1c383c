package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventlottery/internal/domain"
)

type waitlistService struct {
	eventRepo      domain.EventRepository
	waitlistRepo   domain.WaitlistRepository
	contextTimeout time.Duration
}

// NewWaitlistService creates a WaitlistService with the given repositories.
func NewWaitlistService(
	eventRepo domain.EventRepository,
	waitlistRepo domain.WaitlistRepository,
	timeout time.Duration,
) domain.WaitlistService {
	return &waitlistService{
		eventRepo:      eventRepo,
		waitlistRepo:   waitlistRepo,
		contextTimeout: timeout,
	}
}

// Join is idempotent for active entries: a user already WAITING, INVITED,
// or ACCEPTED gets their existing entry back. A user whose previous entry
// is DECLINED or CANCELLED may join again; the decline itself stays
// terminal for the wave it belonged to.
func (s *waitlistService) Join(ctx context.Context, eventID, userID, userName string) (*domain.WaitlistEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	userName = strings.TrimSpace(userName)
	if userID == "" || userName == "" {
		return nil, false, domain.ErrInvalidInput
	}

	if existing, err := s.activeEntry(ctx, eventID, userID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	entry := &domain.WaitlistEntry{
		EventID:  eventID,
		UserID:   userID,
		UserName: userName,
		JoinedAt: time.Now(),
	}
	if err := s.waitlistRepo.Join(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCapacityExceeded) || errors.Is(err, domain.ErrConflict) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("join waitlist: %w", err)
	}
	return entry, true, nil
}

func (s *waitlistService) SignUpDirect(ctx context.Context, eventID, userID, userName string) (*domain.WaitlistEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	userName = strings.TrimSpace(userName)
	if userID == "" || userName == "" {
		return nil, false, domain.ErrInvalidInput
	}

	if existing, err := s.activeEntry(ctx, eventID, userID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	entry := &domain.WaitlistEntry{
		EventID:  eventID,
		UserID:   userID,
		UserName: userName,
		JoinedAt: time.Now(),
	}
	if err := s.waitlistRepo.SignUpDirect(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCapacityExceeded) || errors.Is(err, domain.ErrConflict) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("direct sign-up: %w", err)
	}
	return entry, true, nil
}

// activeEntry returns the user's entry when it still occupies a slot, nil
// when the user may (re)join.
func (s *waitlistService) activeEntry(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	existing, err := s.waitlistRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}
	if existing.Active() {
		return existing, nil
	}
	return nil, nil
}

func (s *waitlistService) Leave(ctx context.Context, entryID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	entry, err := s.waitlistRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get waitlist entry: %w", err)
	}
	if entry.UserID != userID {
		return domain.ErrForbidden
	}
	if _, err := s.waitlistRepo.Leave(ctx, entryID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("leave waitlist: %w", err)
	}
	return nil
}

func (s *waitlistService) RenameEntrant(ctx context.Context, userID, newName string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	newName = strings.TrimSpace(newName)
	if userID == "" || newName == "" {
		return domain.ErrInvalidInput
	}
	// Best-effort denormalized snapshot refresh; zero rows is fine.
	if _, err := s.waitlistRepo.UpdateUserName(ctx, userID, newName); err != nil {
		return fmt.Errorf("rename entrant: %w", err)
	}
	return nil
}

func (s *waitlistService) PurgeEntrant(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.waitlistRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("purge entrant: %w", err)
	}
	return nil
}

func (s *waitlistService) PurgeEvent(ctx context.Context, eventID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID != ownerID {
		return domain.ErrForbidden
	}
	if err := s.waitlistRepo.DeleteByEvent(ctx, eventID); err != nil {
		return fmt.Errorf("purge event: %w", err)
	}
	return nil
}

func (s *waitlistService) ListWaiting(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	entries, err := s.waitlistRepo.ListWaitingByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	return entries, nil
}

func (s *waitlistService) ListChosen(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	entries, err := s.waitlistRepo.ListChosenByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list chosen entries: %w", err)
	}
	return entries, nil
}

func (s *waitlistService) MyHistory(ctx context.Context, userID string) ([]*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	entries, err := s.waitlistRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries by user: %w", err)
	}
	return entries, nil
}
