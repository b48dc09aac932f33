package broadcast

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/dmitrymomot/coursechat/pkg/logger"
)

// Handle is one user's registration in a room.
// Only the registry creates handles; a user has at most one per room.
type Handle struct {
	room   string
	userID string
	sink   Sink
	seq    uint64
}

func (h *Handle) Room() string   { return h.room }
func (h *Handle) UserID() string { return h.userID }
func (h *Handle) Sink() Sink     { return h.sink }

// Registry maps rooms to the handles of their connected users.
// It is meant to be constructed once per process and injected into the
// stream and broadcast endpoints. All methods are safe for concurrent use,
// and every mutation is atomic with respect to the others.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]map[string]*Handle
	seq     uint64
	counter *Counter

	log        *slog.Logger
	onRoomSize func(room string, size int)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithCounter shares an existing counter instead of allocating one.
func WithCounter(c *Counter) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.counter = c
		}
	}
}

// WithRoomSizeCallback is invoked after every change to a room's membership,
// outside the registry lock.
func WithRoomSizeCallback(fn func(room string, size int)) RegistryOption {
	return func(r *Registry) { r.onRoomSize = fn }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:   make(map[string]map[string]*Handle),
		counter: &Counter{},
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers sink for userID in room, creating the room on first use.
// An existing handle for the same user is replaced without notifying its sink,
// and the connection count is left unchanged in that case.
func (r *Registry) Subscribe(room, userID string, sink Sink) *Handle {
	r.mu.Lock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Handle)
		r.rooms[room] = members
	}
	r.seq++
	h := &Handle{room: room, userID: userID, sink: sink, seq: r.seq}
	_, replaced := members[userID]
	members[userID] = h
	if !replaced {
		r.counter.Inc()
	}
	size := len(members)
	r.mu.Unlock()

	r.log.Debug("subscriber registered",
		logger.Room(room),
		logger.UserID(userID),
		slog.Bool("replaced", replaced),
		logger.Connections(r.counter.Value()),
	)
	r.notify(room, size)
	return h
}

// Unsubscribe removes whatever handle userID holds in room. Unknown rooms or
// users are a no-op.
func (r *Registry) Unsubscribe(room, userID string) {
	r.mu.Lock()
	h, ok := r.rooms[room][userID]
	if ok {
		r.removeLocked(h)
	}
	size := len(r.rooms[room])
	r.mu.Unlock()

	if ok {
		r.log.Debug("subscriber removed", logger.Room(room), logger.UserID(userID))
		r.notify(room, size)
	}
}

// Release removes h only if it is still the current handle for its user.
// A session that was superseded by a newer subscription of the same user
// therefore cannot evict its replacement. Reports whether h was removed.
func (r *Registry) Release(h *Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	cur, ok := r.rooms[h.room][h.userID]
	released := ok && cur == h
	if released {
		r.removeLocked(h)
	}
	size := len(r.rooms[h.room])
	r.mu.Unlock()

	if released {
		r.notify(h.room, size)
	}
	return released
}

// removeLocked must be called with r.mu held.
// Empty rooms are dropped; RoomSize reports 0 for them either way.
func (r *Registry) removeLocked(h *Handle) {
	members := r.rooms[h.room]
	delete(members, h.userID)
	if len(members) == 0 {
		delete(r.rooms, h.room)
	}
	r.counter.Dec()
}

func (r *Registry) notify(room string, size int) {
	if r.onRoomSize != nil {
		r.onRoomSize(room, size)
	}
}

// RoomSize returns the number of handles in room, zero for unknown rooms.
func (r *Registry) RoomSize(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[room])
}

// Handles returns a snapshot of room's handles in subscription order.
func (r *Registry) Handles(room string) []*Handle {
	r.mu.Lock()
	handles := lo.Values(r.rooms[room])
	r.mu.Unlock()

	slices.SortFunc(handles, func(a, b *Handle) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return handles
}

// Rooms returns the sorted keys of rooms with at least one subscriber.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	rooms := lo.Keys(r.rooms)
	r.mu.Unlock()

	slices.Sort(rooms)
	return rooms
}

// Total counts handles across all rooms by walking the table.
// It always equals Connections.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.SumBy(lo.Values(r.rooms), func(m map[string]*Handle) int { return len(m) })
}

// Connections returns the connection counter value.
func (r *Registry) Connections() int64 {
	return r.counter.Value()
}
