package statemachine_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursechat/pkg/statemachine"
)

type state string
type event string

const (
	opening state = "opening"
	open    state = "open"
	closed  state = "closed"

	registered event = "registered"
	abort      event = "abort"
)

func newSession(opts ...statemachine.Option[state, event]) *statemachine.Machine[state, event] {
	base := []statemachine.Option[state, event]{
		statemachine.WithTransition(opening, registered, open),
		statemachine.WithTransition(opening, abort, closed),
		statemachine.WithTransition(open, abort, closed),
	}
	return statemachine.New(opening, append(base, opts...)...)
}

func TestMachine(t *testing.T) {
	t.Parallel()

	t.Run("basic transitions", func(t *testing.T) {
		t.Parallel()
		m := newSession()
		assert.Equal(t, opening, m.Current())
		assert.True(t, m.CanFire(registered))

		to, err := m.Fire(registered)
		require.NoError(t, err)
		assert.Equal(t, open, to)
		assert.True(t, m.Is(open, closed))

		_, err = m.Fire(abort)
		require.NoError(t, err)
		assert.Equal(t, closed, m.Current())
	})

	t.Run("terminal state rejects events", func(t *testing.T) {
		t.Parallel()
		m := newSession()
		_, err := m.Fire(abort)
		require.NoError(t, err)

		cur, err := m.Fire(registered)
		require.Error(t, err)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.Equal(t, closed, cur)
		assert.False(t, m.CanFire(abort))
	})

	t.Run("listener sees committed transitions", func(t *testing.T) {
		t.Parallel()
		var seen []string
		m := newSession(statemachine.WithListener(func(from, to state, ev event) {
			seen = append(seen, string(from)+">"+string(to)+":"+string(ev))
		}))
		_, _ = m.Fire(registered)
		_, _ = m.Fire(registered) // rejected, not reported
		_, _ = m.Fire(abort)
		assert.Equal(t, []string{"opening>open:registered", "open>closed:abort"}, seen)
	})

	t.Run("reset and late permit", func(t *testing.T) {
		t.Parallel()
		m := newSession()
		_, _ = m.Fire(abort)
		m.Reset()
		assert.Equal(t, opening, m.Current())

		m.Permit(closed, "revive", opening)
		_, _ = m.Fire(abort)
		to, err := m.Fire("revive")
		require.NoError(t, err)
		assert.Equal(t, opening, to)
	})

	t.Run("only one concurrent abort wins", func(t *testing.T) {
		t.Parallel()
		m := newSession()
		_, _ = m.Fire(registered)

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.Fire(abort); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}
