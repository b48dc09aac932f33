package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/statemachine"
)

// DefaultHeartbeatInterval is how often an idle stream receives a heartbeat.
const DefaultHeartbeatInterval = 30 * time.Second

// DefaultBufferSize is the per-subscriber queue capacity.
const DefaultBufferSize = 64

// State of a stream session.
type State string

const (
	StateOpening State = "opening"
	StateOpen    State = "open"
	StateClosed  State = "closed"
)

type sessionEvent string

const (
	sessionRegistered sessionEvent = "registered"
	sessionClosed     sessionEvent = "closed"
)

// Transport writes one event to a subscriber's stream. Calls come from a
// single goroutine, in order.
type Transport interface {
	Send(ctx context.Context, ev Event) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ev Event) error

func (f TransportFunc) Send(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Ticker is the part of *time.Ticker a session uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock lets tests drive heartbeats.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

type realTicker struct{ t *time.Ticker }

func (realClock) Now() time.Time                   { return time.Now() }
func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
func (t realTicker) C() <-chan time.Time           { return t.t.C }
func (t realTicker) Stop()                         { t.t.Stop() }

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithHeartbeatInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

func WithBufferSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(c Clock) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// Session is one subscriber's long-lived push channel:
// opening -> open -> closed.
//
// Run registers a queue in the registry, writes a connected event and then
// forwards queued broadcasts and periodic heartbeats to the transport until
// the context is cancelled (transport abort), a write fails, or the queue is
// closed by pruning. Cleanup stops the heartbeat ticker and then releases the
// registry handle, exactly once whichever path triggered it.
type Session struct {
	id         string
	reg        *Registry
	room       string
	userID     string
	heartbeat  time.Duration
	bufferSize int
	clock      Clock
	log        *slog.Logger

	fsm *statemachine.Machine[State, sessionEvent]

	mu     sync.Mutex
	queue  *Queue
	handle *Handle
	ticker Ticker

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(reg *Registry, room, userID string, opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.NewString(),
		reg:        reg,
		room:       room,
		userID:     userID,
		heartbeat:  DefaultHeartbeatInterval,
		bufferSize: DefaultBufferSize,
		clock:      realClock{},
		log:        logger.Noop(),
		done:       make(chan struct{}),
		fsm: statemachine.New(StateOpening,
			statemachine.WithTransition(StateOpening, sessionRegistered, StateOpen),
			statemachine.WithTransition(StateOpening, sessionClosed, StateClosed),
			statemachine.WithTransition(StateOpen, sessionClosed, StateClosed),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(
		logger.Component("session"),
		slog.String("session_id", s.id),
		logger.Room(room),
		logger.UserID(userID),
	)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.fsm.Current() }

// Done is closed after cleanup ran.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run blocks for the lifetime of the stream. A cancelled context is a normal
// end and yields nil; a failed write yields an error wrapping ErrSendFailed.
func (s *Session) Run(ctx context.Context, t Transport) error {
	queue := NewQueue(s.bufferSize)

	s.mu.Lock()
	if !s.fsm.Is(StateOpening) {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.queue = queue
	s.handle = s.reg.Subscribe(s.room, s.userID, queue)
	_, _ = s.fsm.Fire(sessionRegistered)
	s.mu.Unlock()
	defer s.Close()

	s.log.DebugContext(ctx, "stream opened", logger.Connections(s.reg.Connections()))

	if err := t.Send(ctx, Connected()); err != nil {
		return s.sendFailed(ctx, EventConnected, err)
	}

	s.mu.Lock()
	if s.fsm.Is(StateClosed) {
		s.mu.Unlock()
		return nil
	}
	ticker := s.clock.NewTicker(s.heartbeat)
	s.ticker = ticker
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case now := <-ticker.C():
			if err := t.Send(ctx, Heartbeat(now)); err != nil {
				return s.sendFailed(ctx, EventHeartbeat, err)
			}
		case ev, ok := <-queue.Events():
			if !ok {
				s.log.DebugContext(ctx, "queue closed, subscriber pruned")
				return nil
			}
			if err := t.Send(ctx, ev); err != nil {
				return s.sendFailed(ctx, ev.Type, err)
			}
		}
	}
}

func (s *Session) sendFailed(ctx context.Context, t EventType, err error) error {
	// writes to an aborted request are expected
	if ctx.Err() != nil {
		return nil
	}
	s.log.DebugContext(ctx, "stream write failed", logger.EventType(string(t)), logger.Error(err))
	return errors.Join(ErrSendFailed, err)
}

// Close tears the session down: stop the heartbeat, release the handle,
// close the queue. Safe to call from any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		released := s.reg.Release(s.handle)
		if s.queue != nil {
			s.queue.Close()
		}
		_, _ = s.fsm.Fire(sessionClosed)
		s.mu.Unlock()

		close(s.done)
		s.log.Debug("stream closed",
			slog.Bool("released", released),
			logger.Connections(s.reg.Connections()),
		)
	})
}
