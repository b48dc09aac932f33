package broadcast_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursechat/pkg/broadcast"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeClock struct {
	ticker   *fakeTicker
	interval chan time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		ticker:   &fakeTicker{ch: make(chan time.Time)},
		interval: make(chan time.Duration, 1),
	}
}

func (c *fakeClock) Now() time.Time { return time.UnixMilli(1000) }

func (c *fakeClock) NewTicker(d time.Duration) broadcast.Ticker {
	c.interval <- d
	return c.ticker
}

// streamRecorder is a Transport that forwards events to a channel and can
// start failing on demand.
type streamRecorder struct {
	events chan broadcast.Event
	mu     sync.Mutex
	err    error
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{events: make(chan broadcast.Event, 16)}
}

func (s *streamRecorder) Send(_ context.Context, ev broadcast.Event) error {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.events <- ev
	return nil
}

func (s *streamRecorder) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *streamRecorder) next(t *testing.T) broadcast.Event {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(time.Second):
		require.FailNow(t, "no event received")
		return broadcast.Event{}
	}
}

func runSession(t *testing.T, sess *broadcast.Session, tr broadcast.Transport) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx, tr) }()
	return cancel, done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		require.FailNow(t, "session did not stop")
		return nil
	}
}

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("lifecycle on transport abort", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		disp := broadcast.NewDispatcher(reg, nil)
		clock := newFakeClock()
		tr := newStreamRecorder()

		sess := broadcast.NewSession(reg, "R1", "alice",
			broadcast.WithClock(clock),
			broadcast.WithHeartbeatInterval(30*time.Second),
		)
		assert.Equal(t, broadcast.StateOpening, sess.State())

		cancel, done := runSession(t, sess, tr)
		assert.Equal(t, broadcast.EventConnected, tr.next(t).Type)
		assert.Equal(t, 30*time.Second, <-clock.interval)
		assert.Equal(t, broadcast.StateOpen, sess.State())
		assert.Equal(t, 1, reg.RoomSize("R1"))

		clock.ticker.ch <- time.UnixMilli(5000)
		hb := tr.next(t)
		assert.Equal(t, broadcast.EventHeartbeat, hb.Type)
		assert.Equal(t, int64(5000), hb.Timestamp)

		disp.Broadcast(context.Background(), "R1", broadcast.DeleteEvent("m1"), "")
		assert.Equal(t, broadcast.DeleteEvent("m1"), tr.next(t))

		cancel()
		require.NoError(t, waitRun(t, done))
		<-sess.Done()
		assert.Equal(t, broadcast.StateClosed, sess.State())
		assert.True(t, clock.ticker.stopped.Load(), "heartbeat ticker must be stopped")
		assert.Equal(t, 0, reg.RoomSize("R1"))
		assert.Equal(t, int64(0), reg.Connections())
	})

	t.Run("heartbeat failure closes the session", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		clock := newFakeClock()
		tr := newStreamRecorder()
		sess := broadcast.NewSession(reg, "R1", "bob", broadcast.WithClock(clock))

		cancel, done := runSession(t, sess, tr)
		defer cancel()
		tr.next(t)
		<-clock.interval

		tr.fail(errors.New("write: broken pipe"))
		clock.ticker.ch <- time.Now()

		err := waitRun(t, done)
		require.Error(t, err)
		assert.ErrorIs(t, err, broadcast.ErrSendFailed)
		assert.True(t, clock.ticker.stopped.Load())
		assert.Equal(t, broadcast.StateClosed, sess.State())
		assert.Equal(t, 0, reg.RoomSize("R1"))
	})

	t.Run("pruned queue ends the session", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		disp := broadcast.NewDispatcher(reg, nil)
		clock := newFakeClock()
		tr := newStreamRecorder()
		sess := broadcast.NewSession(reg, "R1", "carol", broadcast.WithClock(clock))

		cancel, done := runSession(t, sess, tr)
		defer cancel()
		tr.next(t)
		<-clock.interval

		require.Equal(t, 1, disp.Prune("R1", reg.Handles("R1")))
		require.NoError(t, waitRun(t, done))
		assert.Equal(t, broadcast.StateClosed, sess.State())
		assert.Equal(t, int64(0), reg.Connections())
	})

	t.Run("superseded session leaves the replacement registered", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		disp := broadcast.NewDispatcher(reg, nil)

		oldClock, newClock := newFakeClock(), newFakeClock()
		oldTr, newTr := newStreamRecorder(), newStreamRecorder()
		oldSess := broadcast.NewSession(reg, "R1", "dave", broadcast.WithClock(oldClock))
		newSess := broadcast.NewSession(reg, "R1", "dave", broadcast.WithClock(newClock))

		cancelOld, doneOld := runSession(t, oldSess, oldTr)
		oldTr.next(t)
		<-oldClock.interval
		cancelNew, doneNew := runSession(t, newSess, newTr)
		defer cancelNew()
		newTr.next(t)
		<-newClock.interval

		assert.Equal(t, 1, reg.RoomSize("R1"))

		cancelOld()
		require.NoError(t, waitRun(t, doneOld))
		assert.Equal(t, 1, reg.RoomSize("R1"), "old session cleanup must not remove the new handle")

		disp.Broadcast(context.Background(), "R1", broadcast.DeleteEvent("m1"), "")
		assert.Equal(t, broadcast.DeleteEvent("m1"), newTr.next(t))

		cancelNew()
		require.NoError(t, waitRun(t, doneNew))
		assert.Equal(t, 0, reg.RoomSize("R1"))
		assert.Equal(t, int64(0), reg.Connections())
	})

	t.Run("close is idempotent and run only once", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		clock := newFakeClock()
		tr := newStreamRecorder()
		sess := broadcast.NewSession(reg, "R1", "erin", broadcast.WithClock(clock))

		cancel, done := runSession(t, sess, tr)
		defer cancel()
		tr.next(t)
		<-clock.interval

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sess.Close()
			}()
		}
		wg.Wait()
		require.NoError(t, waitRun(t, done))
		assert.Equal(t, int64(0), reg.Connections())

		err := sess.Run(context.Background(), tr)
		assert.ErrorIs(t, err, broadcast.ErrSessionClosed)
	})

	t.Run("failed connected write closes immediately", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		tr := newStreamRecorder()
		tr.fail(errors.New("reset by peer"))
		sess := broadcast.NewSession(reg, "R1", "frank", broadcast.WithClock(newFakeClock()))

		err := sess.Run(context.Background(), tr)
		assert.ErrorIs(t, err, broadcast.ErrSendFailed)
		assert.Equal(t, broadcast.StateClosed, sess.State())
		assert.Equal(t, 0, reg.RoomSize("R1"))
	})
}
