package messages

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// MemoryStore keeps messages in process memory. History is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]Message
	index map[string]string // message id -> room
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string][]Message),
		index: make(map[string]string),
	}
}

func compareMessages(a, b Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (s *MemoryStore) Create(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[msg.ID]; ok {
		return ErrAlreadyExists
	}

	msgs := s.rooms[msg.RoomID]
	i, _ := slices.BinarySearchFunc(msgs, msg, compareMessages)
	s.rooms[msg.RoomID] = slices.Insert(msgs, i, msg)
	s.index[msg.ID] = msg.RoomID
	return nil
}

func (s *MemoryStore) List(ctx context.Context, room string, opts ListOptions) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.rooms[room]
	if !opts.Before.IsZero() {
		msgs = lo.Filter(msgs, func(m Message, _ int) bool { return m.CreatedAt.Before(opts.Before) })
	}
	if n := opts.limit(); len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return slices.Clone(msgs), nil
}

func (s *MemoryStore) Get(ctx context.Context, room, id string) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := lo.Find(s.rooms[room], func(m Message) bool { return m.ID == id })
	if !ok {
		return Message{}, ErrNotFound
	}
	return msg, nil
}

func (s *MemoryStore) Delete(ctx context.Context, room, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.rooms[room]
	i := slices.IndexFunc(msgs, func(m Message) bool { return m.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	msgs = slices.Delete(msgs, i, i+1)
	if len(msgs) == 0 {
		delete(s.rooms, room)
	} else {
		s.rooms[room] = msgs
	}
	delete(s.index, id)
	return nil
}

// MemoryMembership is a fixed set of room members.
type MemoryMembership struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

// NewMemoryMembership creates a membership set from room -> user ids.
func NewMemoryMembership(seed map[string][]string) *MemoryMembership {
	m := &MemoryMembership{members: make(map[string]map[string]struct{})}
	for room, users := range seed {
		for _, u := range users {
			m.add(room, u)
		}
	}
	return m
}

// Add enrolls a user in a room.
func (m *MemoryMembership) Add(_ context.Context, room, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(room, userID)
	return nil
}

func (m *MemoryMembership) add(room, userID string) {
	users, ok := m.members[room]
	if !ok {
		users = make(map[string]struct{})
		m.members[room] = users
	}
	users[userID] = struct{}{}
}

func (m *MemoryMembership) IsMember(_ context.Context, room, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.members[room][userID]
	return ok, nil
}

// OpenMembership treats every user as a member of every room.
type OpenMembership struct{}

func (OpenMembership) IsMember(context.Context, string, string) (bool, error) { return true, nil }
