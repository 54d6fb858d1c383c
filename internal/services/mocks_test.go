package services

import (
	"context"
	"time"

	"eventlottery/internal/domain"
)

type mockEventRepository struct {
	events  map[string]*domain.Event
	created []*domain.Event
	active  map[string]bool
	err     error
}

func (m *mockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if m.err != nil {
		return m.err
	}
	event.ID = "ev-created"
	m.created = append(m.created, event)
	return nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (m *mockEventRepository) GetByEventCode(ctx context.Context, eventCode string) (*domain.Event, error) {
	for _, ev := range m.events {
		if ev.EventCode == eventCode {
			return ev, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockEventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Event
	for _, ev := range m.events {
		if ev.OwnerID == ownerID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockEventRepository) ListActive(ctx context.Context) ([]*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Event
	for _, ev := range m.events {
		if ev.IsActive {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockEventRepository) SetActive(ctx context.Context, id string, active bool) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.events[id]; !ok {
		return domain.ErrNotFound
	}
	if m.active == nil {
		m.active = map[string]bool{}
	}
	m.active[id] = active
	return nil
}

type mockWaitlistRepository struct {
	entriesByID        map[string]*domain.WaitlistEntry
	entryByEventUser   map[string]*domain.WaitlistEntry
	waitingByEvent     map[string][]*domain.WaitlistEntry
	chosenByEvent      map[string][]*domain.WaitlistEntry
	allByEvent         map[string][]*domain.WaitlistEntry
	byUser             map[string][]*domain.WaitlistEntry
	joined             []*domain.WaitlistEntry
	left               []string
	renamed            map[string]string
	purgedUsers        []string
	purgedEvents       []string
	joinErr            error
	leaveErr           error
	err                error
}

func (m *mockWaitlistRepository) Join(ctx context.Context, entry *domain.WaitlistEntry) error {
	if m.joinErr != nil {
		return m.joinErr
	}
	entry.ID = "entry-created"
	entry.Status = domain.StatusWaiting
	entry.Position = len(m.joined) + 1
	m.joined = append(m.joined, entry)
	return nil
}

func (m *mockWaitlistRepository) SignUpDirect(ctx context.Context, entry *domain.WaitlistEntry) error {
	if m.joinErr != nil {
		return m.joinErr
	}
	entry.ID = "entry-created"
	entry.Status = domain.StatusAccepted
	m.joined = append(m.joined, entry)
	return nil
}

func (m *mockWaitlistRepository) Leave(ctx context.Context, entryID string) (*domain.WaitlistEntry, error) {
	if m.leaveErr != nil {
		return nil, m.leaveErr
	}
	entry, ok := m.entriesByID[entryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.left = append(m.left, entryID)
	entry.Status = domain.StatusCancelled
	return entry, nil
}

func (m *mockWaitlistRepository) GetByID(ctx context.Context, entryID string) (*domain.WaitlistEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry, ok := m.entriesByID[entryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (m *mockWaitlistRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry, ok := m.entryByEventUser[eventID+":"+userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (m *mockWaitlistRepository) ListWaitingByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.waitingByEvent[eventID], nil
}

func (m *mockWaitlistRepository) ListChosenByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chosenByEvent[eventID], nil
}

func (m *mockWaitlistRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.allByEvent[eventID], nil
}

func (m *mockWaitlistRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.WaitlistEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byUser[userID], nil
}

func (m *mockWaitlistRepository) UpdateUserName(ctx context.Context, userID, newName string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.renamed == nil {
		m.renamed = map[string]string{}
	}
	m.renamed[userID] = newName
	return 1, nil
}

func (m *mockWaitlistRepository) DeleteByUser(ctx context.Context, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.purgedUsers = append(m.purgedUsers, userID)
	return nil
}

func (m *mockWaitlistRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	if m.err != nil {
		return m.err
	}
	m.purgedEvents = append(m.purgedEvents, eventID)
	return nil
}

type mockInvitationRepository struct {
	invitations map[string]*domain.EventInvitation
	overdue     []*domain.EventInvitation
	outcome     domain.AcceptOutcome
	acceptErr   error
	declineErr  error
	expireErr   map[string]error
	expired     []string
	err         error
}

func (m *mockInvitationRepository) GetByID(ctx context.Context, id string) (*domain.EventInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	inv, ok := m.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (m *mockInvitationRepository) ListByEventAndStatus(ctx context.Context, eventID, status string) ([]*domain.EventInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.EventInvitation
	for _, inv := range m.invitations {
		if inv.EventID == eventID && (status == "" || inv.Status == status) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvitationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.EventInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.EventInvitation
	for _, inv := range m.invitations {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvitationRepository) ListPendingSentBefore(ctx context.Context, now time.Time) ([]*domain.EventInvitation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.overdue, nil
}

func (m *mockInvitationRepository) Accept(ctx context.Context, id string) (domain.AcceptOutcome, *domain.EventInvitation, error) {
	if m.acceptErr != nil {
		return 0, nil, m.acceptErr
	}
	inv := m.invitations[id]
	switch m.outcome {
	case domain.AcceptConfirmed:
		inv.Status = domain.InvitationAccepted
	case domain.AcceptSlotLost:
		inv.Status = domain.InvitationExpired
	}
	return m.outcome, inv, nil
}

func (m *mockInvitationRepository) Decline(ctx context.Context, id string) (*domain.EventInvitation, error) {
	if m.declineErr != nil {
		return nil, m.declineErr
	}
	inv := m.invitations[id]
	inv.Status = domain.InvitationDeclined
	return inv, nil
}

func (m *mockInvitationRepository) Expire(ctx context.Context, id string) (*domain.EventInvitation, error) {
	if err, ok := m.expireErr[id]; ok {
		return nil, err
	}
	inv := m.invitations[id]
	inv.Status = domain.InvitationExpired
	m.expired = append(m.expired, id)
	return inv, nil
}

type mockDrawRepository struct {
	result      *domain.DrawResult
	err         error
	gotWinners  int
	gotSelector domain.WinnerSelector
}

func (m *mockDrawRepository) RunDraw(ctx context.Context, eventID string, numberOfWinners int, selector domain.WinnerSelector) (*domain.DrawResult, error) {
	m.gotWinners = numberOfWinners
	m.gotSelector = selector
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type dispatchedCall struct {
	category   domain.NotificationCategory
	recipients []string
	wave       int
	title      string
}

type mockDispatcher struct {
	calls []dispatchedCall
}

func (m *mockDispatcher) EntrantsSelected(ctx context.Context, event *domain.Event, wave int, recipientIDs []string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationSelected, recipients: recipientIDs, wave: wave})
}

func (m *mockDispatcher) WaveCompleted(ctx context.Context, event *domain.Event, wave int, remainingIDs []string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationNotSelected, recipients: remainingIDs, wave: wave})
}

func (m *mockDispatcher) InvitationAccepted(ctx context.Context, event *domain.Event, userID string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationAccepted, recipients: []string{userID}})
}

func (m *mockDispatcher) InvitationDeclined(ctx context.Context, event *domain.Event, userID string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationDeclined, recipients: []string{userID}})
}

func (m *mockDispatcher) SlotLost(ctx context.Context, event *domain.Event, userID string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationExpired, recipients: []string{userID}})
}

func (m *mockDispatcher) InvitationExpired(ctx context.Context, event *domain.Event, userID string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationExpired, recipients: []string{userID}})
}

func (m *mockDispatcher) Broadcast(ctx context.Context, event *domain.Event, title, body string, recipientIDs []string) {
	m.calls = append(m.calls, dispatchedCall{category: domain.NotificationBroadcast, recipients: recipientIDs, title: title})
}

func (m *mockDispatcher) byCategory(cat domain.NotificationCategory) []dispatchedCall {
	var out []dispatchedCall
	for _, c := range m.calls {
		if c.category == cat {
			out = append(out, c)
		}
	}
	return out
}

type mockEmailService struct {
	sent []*domain.DrawSummaryEmailData
	err  error
}

func (m *mockEmailService) SendDrawSummary(ctx context.Context, data *domain.DrawSummaryEmailData) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, data)
	return nil
}

type mockCapacityLedger struct {
	incremented []string
	decremented []string
	reset       []string
	setCounts   map[string]int
	err         error
}

func (m *mockCapacityLedger) IncrementEnrolled(ctx context.Context, eventID string) error {
	if m.err != nil {
		return m.err
	}
	m.incremented = append(m.incremented, eventID)
	return nil
}

func (m *mockCapacityLedger) DecrementEnrolled(ctx context.Context, eventID string) error {
	if m.err != nil {
		return m.err
	}
	m.decremented = append(m.decremented, eventID)
	return nil
}

func (m *mockCapacityLedger) SetWaitlistCount(ctx context.Context, eventID string, count int) error {
	if m.err != nil {
		return m.err
	}
	if m.setCounts == nil {
		m.setCounts = map[string]int{}
	}
	m.setCounts[eventID] = count
	return nil
}

func (m *mockCapacityLedger) ResetAttendance(ctx context.Context, eventID string) error {
	if m.err != nil {
		return m.err
	}
	m.reset = append(m.reset, eventID)
	return nil
}

type mockNotifier struct {
	requests []*domain.NotificationRequest
	err      error
}

func (m *mockNotifier) Dispatch(ctx context.Context, req *domain.NotificationRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}
