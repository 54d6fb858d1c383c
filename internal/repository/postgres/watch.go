package postgres

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"eventlottery/internal/domain"
)

const waitlistChannel = "waitlist_changed"

const (
	listenMinReconnect = 2 * time.Second
	listenMaxReconnect = 30 * time.Second
	listenPingInterval = 90 * time.Second
)

// waitlistWatcher implements domain.WaitlistWatcher on LISTEN/NOTIFY. The
// mutating transactions pg_notify the event id; each subscription
// re-queries a full snapshot on every wakeup, so consumers always see
// consistent committed state rather than deltas. The underlying listener
// reconnects on its own, and a reconnect forces a fresh snapshot since
// notifications may have been missed while the connection was down.
type waitlistWatcher struct {
	conninfo string
	repo     domain.WaitlistRepository
	logger   *slog.Logger
}

func NewWaitlistWatcher(conninfo string, repo domain.WaitlistRepository, logger *slog.Logger) domain.WaitlistWatcher {
	return &waitlistWatcher{
		conninfo: conninfo,
		repo:     repo,
		logger:   logger,
	}
}

func (w *waitlistWatcher) Watch(ctx context.Context, eventID string) (domain.WaitlistSubscription, error) {
	listener := pq.NewListener(w.conninfo, listenMinReconnect, listenMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				w.logger.Warn("waitlist listener event", "event", int(ev), "err", err)
			}
		})
	if err := listener.Listen(waitlistChannel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	sub := &waitlistSubscription{
		updates: make(chan []*domain.WaitlistEntry, 1),
		done:    make(chan struct{}),
	}
	go w.run(ctx, listener, sub, eventID)
	return sub, nil
}

func (w *waitlistWatcher) run(ctx context.Context, listener *pq.Listener, sub *waitlistSubscription, eventID string) {
	defer close(sub.updates)
	defer listener.Close()

	if !w.emit(ctx, sub, eventID) {
		return
	}

	ping := time.NewTicker(listenPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			sub.fail(ctx.Err())
			return
		case <-sub.done:
			return
		case n, ok := <-listener.Notify:
			if !ok {
				sub.fail(nil)
				return
			}
			// A nil notification signals a reconnect: refresh regardless
			// of which event changed.
			if n != nil && n.Extra != eventID {
				continue
			}
			if !w.emit(ctx, sub, eventID) {
				return
			}
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				w.logger.Warn("waitlist listener ping failed", "err", err)
			}
		}
	}
}

// emit queries a full snapshot and delivers it latest-wins. Returns false
// when the subscription should stop.
func (w *waitlistWatcher) emit(ctx context.Context, sub *waitlistSubscription, eventID string) bool {
	entries, err := w.repo.ListByEventID(ctx, eventID)
	if err != nil {
		w.logger.Warn("waitlist snapshot failed", "event_id", eventID, "err", err)
		sub.fail(err)
		return false
	}
	// Replace a stale undelivered snapshot rather than blocking on a slow
	// consumer.
	select {
	case <-sub.updates:
	default:
	}
	select {
	case sub.updates <- entries:
		return true
	case <-sub.done:
		return false
	case <-ctx.Done():
		sub.fail(ctx.Err())
		return false
	}
}

type waitlistSubscription struct {
	updates chan []*domain.WaitlistEntry

	mu   sync.Mutex
	err  error
	done chan struct{}
	once sync.Once
}

func (s *waitlistSubscription) Updates() <-chan []*domain.WaitlistEntry {
	return s.updates
}

func (s *waitlistSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *waitlistSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
	})
	return nil
}

func (s *waitlistSubscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.once.Do(func() {
		close(s.done)
	})
}
