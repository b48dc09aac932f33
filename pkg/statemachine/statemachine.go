package statemachine

import "sync"

// Listener observes committed transitions.
// It runs after the state changed, outside the machine lock.
type Listener[S ~string, E ~string] func(from, to S, event E)

// Machine is a thread-safe finite state machine over string-like states and events.
// Lookups are O(1) through a nested map: [from][event] -> to.
type Machine[S ~string, E ~string] struct {
	initial     S
	current     S
	transitions map[S]map[E]S
	listeners   []Listener[S, E]
	mu          sync.RWMutex
}

// Option configures a Machine at construction time.
type Option[S ~string, E ~string] func(*Machine[S, E])

// WithTransition permits moving from one state to another when event fires.
func WithTransition[S ~string, E ~string](from S, event E, to S) Option[S, E] {
	return func(m *Machine[S, E]) {
		m.permit(from, event, to)
	}
}

// WithListener registers a transition listener.
func WithListener[S ~string, E ~string](l Listener[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
}

// New creates a machine in the initial state.
func New[S ~string, E ~string](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		initial:     initial,
		current:     initial,
		transitions: make(map[S]map[E]S),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Permit adds a transition after construction.
func (m *Machine[S, E]) Permit(from S, event E, to S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permit(from, event, to)
}

func (m *Machine[S, E]) permit(from S, event E, to S) {
	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[E]S)
	}
	m.transitions[from][event] = to
}

// OnTransition registers a listener after construction.
func (m *Machine[S, E]) OnTransition(l Listener[S, E]) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in any of the given states.
func (m *Machine[S, E]) Is(states ...S) bool {
	cur := m.Current()
	for _, s := range states {
		if s == cur {
			return true
		}
	}
	return false
}

// CanFire reports whether event has a transition from the current state.
func (m *Machine[S, E]) CanFire(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.transitions[m.current][event]
	return ok
}

// Fire applies event and returns the new state.
// It returns *ErrNoTransitionAvailable and leaves the state unchanged when
// the event is not permitted from the current state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.current
	to, ok := m.transitions[from][event]
	if !ok {
		m.mu.Unlock()
		return from, NewErrNoTransitionAvailable(string(from), string(event))
	}
	m.current = to
	listeners := m.listeners
	m.mu.Unlock()

	for _, l := range listeners {
		l(from, to, event)
	}
	return to, nil
}

// Reset returns the machine to its initial state without notifying listeners.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}
