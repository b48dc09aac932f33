package broadcast_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursechat/pkg/broadcast"
)

// recorder is a sink that remembers what it received and can be told to fail.
type recorder struct {
	mu     sync.Mutex
	events []broadcast.Event
	err    error
}

func (r *recorder) Push(ev broadcast.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) received() []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Event(nil), r.events...)
}

func assertInvariant(t *testing.T, reg *broadcast.Registry) {
	t.Helper()
	assert.Equal(t, int64(reg.Total()), reg.Connections(), "handle count must equal connection counter")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("room size follows subscribe and unsubscribe", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		assert.Equal(t, 0, reg.RoomSize("R1"), "unknown room is empty")

		reg.Subscribe("R1", "alice", &recorder{})
		reg.Subscribe("R1", "bob", &recorder{})
		reg.Subscribe("R2", "alice", &recorder{})
		assert.Equal(t, 2, reg.RoomSize("R1"))
		assert.Equal(t, 1, reg.RoomSize("R2"))
		assertInvariant(t, reg)

		reg.Unsubscribe("R1", "alice")
		reg.Unsubscribe("R1", "alice")
		reg.Unsubscribe("R9", "nobody")
		assert.Equal(t, 1, reg.RoomSize("R1"))
		assert.Equal(t, []string{"R1", "R2"}, reg.Rooms())
		assertInvariant(t, reg)

		reg.Unsubscribe("R1", "bob")
		assert.Equal(t, 0, reg.RoomSize("R1"))
		assert.Equal(t, []string{"R2"}, reg.Rooms())
		assertInvariant(t, reg)
	})

	t.Run("re-subscribe replaces without double counting", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		first := &recorder{}
		second := &recorder{}
		oldHandle := reg.Subscribe("R1", "alice", first)
		newHandle := reg.Subscribe("R1", "alice", second)

		assert.Equal(t, 1, reg.RoomSize("R1"))
		assert.Equal(t, int64(1), reg.Connections())

		handles := reg.Handles("R1")
		require.Len(t, handles, 1)
		assert.Same(t, newHandle, handles[0])
		assert.Same(t, second, handles[0].Sink())

		assert.False(t, reg.Release(oldHandle), "superseded handle must not evict its replacement")
		assert.Equal(t, 1, reg.RoomSize("R1"))
		assert.True(t, reg.Release(newHandle))
		assert.Equal(t, 0, reg.RoomSize("R1"))
		assertInvariant(t, reg)
	})

	t.Run("handles are returned in subscription order", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		for _, u := range []string{"c", "a", "b"} {
			reg.Subscribe("R1", u, &recorder{})
		}
		var users []string
		for _, h := range reg.Handles("R1") {
			users = append(users, h.UserID())
			assert.Equal(t, "R1", h.Room())
		}
		assert.Equal(t, []string{"c", "a", "b"}, users)
	})

	t.Run("room size callback and shared counter", func(t *testing.T) {
		t.Parallel()
		counter := &broadcast.Counter{}
		var sizes []int
		reg := broadcast.NewRegistry(
			broadcast.WithCounter(counter),
			broadcast.WithRoomSizeCallback(func(room string, size int) {
				assert.Equal(t, "R1", room)
				sizes = append(sizes, size)
			}),
		)
		reg.Subscribe("R1", "a", &recorder{})
		reg.Subscribe("R1", "b", &recorder{})
		reg.Unsubscribe("R1", "a")
		assert.Equal(t, []int{1, 2, 1}, sizes)
		assert.Equal(t, int64(1), counter.Value())
	})

	t.Run("concurrent mutations keep the invariant", func(t *testing.T) {
		t.Parallel()
		reg := broadcast.NewRegistry()
		disp := broadcast.NewDispatcher(reg, nil)

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user := fmt.Sprintf("u%d", i%10)
				sink := &recorder{}
				if i%3 == 0 {
					sink.err = errors.New("gone")
				}
				reg.Subscribe("R1", user, sink)
				disp.Broadcast(context.Background(), "R1", broadcast.DeleteEvent("m"), "")
				if i%4 == 0 {
					reg.Unsubscribe("R1", user)
				}
			}()
		}
		wg.Wait()
		assertInvariant(t, reg)
		assert.LessOrEqual(t, reg.RoomSize("R1"), 10)
	})
}
