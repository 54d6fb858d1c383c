package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"eventlottery/internal/domain"
)

const defaultAcceptanceDeadlineHours = 48

type eventService struct {
	eventRepo      domain.EventRepository
	waitlistRepo   domain.WaitlistRepository
	ledger         domain.CapacityLedger
	dispatcher     domain.NotificationDispatcher
	contextTimeout time.Duration
}

func NewEventService(
	eventRepo domain.EventRepository,
	waitlistRepo domain.WaitlistRepository,
	ledger domain.CapacityLedger,
	dispatcher domain.NotificationDispatcher,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		waitlistRepo:   waitlistRepo,
		ledger:         ledger,
		dispatcher:     dispatcher,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.OwnerID == "" {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(event.Name) == "" || event.Capacity <= 0 || event.WaitlistCapacity < 0 {
		return domain.ErrInvalidInput
	}
	if event.SamplingCount <= 0 {
		event.SamplingCount = event.Capacity
	}
	if event.AcceptanceDeadlineHours <= 0 {
		event.AcceptanceDeadlineHours = defaultAcceptanceDeadlineHours
	}
	if event.EventCode == "" {
		code, err := generateEventCode()
		if err != nil {
			return fmt.Errorf("generate event code: %w", err)
		}
		event.EventCode = code
	}
	event.Enrolled = 0
	event.WaitlistCount = 0
	event.DrawWave = 0
	event.IsActive = true
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()

	return s.eventRepo.Create(ctx, event)
}

const eventCodeLength = 4

var eventCodeAlphabet = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

func generateEventCode() (string, error) {
	b := make([]rune, eventCodeLength)
	max := big.NewInt(int64(len(eventCodeAlphabet)))
	for i := 0; i < eventCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = eventCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListMyEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.ListByOwnerID(ctx, ownerID)
}

func (s *eventService) ListActiveEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.ListActive(ctx)
}

// RemoveEvent soft-deletes the event record and hard-deletes its waitlist
// entries, matching the purge-on-removal cascade.
func (s *eventService) RemoveEvent(ctx context.Context, eventID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.requireOwner(ctx, eventID, ownerID); err != nil {
		return err
	}
	if err := s.waitlistRepo.DeleteByEvent(ctx, eventID); err != nil {
		return fmt.Errorf("purge event entries: %w", err)
	}
	if err := s.eventRepo.SetActive(ctx, eventID, false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("deactivate event: %w", err)
	}
	return nil
}

func (s *eventService) ResetAttendance(ctx context.Context, eventID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.requireOwner(ctx, eventID, ownerID); err != nil {
		return err
	}
	if err := s.ledger.ResetAttendance(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("reset attendance: %w", err)
	}
	return nil
}

func (s *eventService) Broadcast(ctx context.Context, eventID, ownerID, title, body string, recipientIDs []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if strings.TrimSpace(title) == "" {
		return domain.ErrInvalidInput
	}
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
	if len(recipientIDs) == 0 {
		// Default audience: everyone still holding a slot.
		entries, err := s.waitlistRepo.ListByEventID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		for _, entry := range entries {
			if entry.Active() {
				recipientIDs = append(recipientIDs, entry.UserID)
			}
		}
	}
	s.dispatcher.Broadcast(ctx, event, title, body, recipientIDs)
	return nil
}

func (s *eventService) requireOwner(ctx context.Context, eventID, ownerID string) error {
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
	return nil
}
