// Package statemachine provides a small generic finite state machine used to
// track connection lifecycles: the server-side stream session
// (opening -> open -> closed) and the client adapter
// (disconnected -> connecting -> connected -> ... -> exhausted).
//
//	type state string
//	type event string
//
//	m := statemachine.New[state, event]("opening",
//		statemachine.WithTransition[state, event]("opening", "registered", "open"),
//		statemachine.WithTransition[state, event]("open", "abort", "closed"),
//	)
//	if _, err := m.Fire("registered"); err != nil {
//		// not permitted from the current state
//	}
//
// All methods are safe for concurrent use.
package statemachine
