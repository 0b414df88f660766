package realtime

// State is the tagged connection lifecycle enum from spec.md §3/§4.3.
type State int

const (
	StateInitialized State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateSuspended
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateSuspended:
		return "suspended"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// allowedTransitions is the transition table from spec.md §4.3, built
// directly from the spec since no example in the pack models a
// fixed-state connection lifecycle.
var allowedTransitions = map[State]map[State]bool{
	StateInitialized: {
		StateConnecting: true,
		StateClosed:     true,
	},
	StateConnecting: {
		StateConnected:    true,
		StateDisconnected: true,
		StateSuspended:    true,
		StateFailed:       true,
		StateClosing:      true,
	},
	StateConnected: {
		StateDisconnected: true,
		StateSuspended:    true,
		StateClosing:      true,
		StateFailed:       true,
	},
	StateDisconnected: {
		StateConnecting: true,
		StateSuspended:  true,
		StateClosing:    true,
		StateFailed:     true,
	},
	StateSuspended: {
		StateConnecting: true,
		StateClosing:    true,
		StateFailed:     true,
	},
	StateClosing: {
		StateClosed: true,
		StateFailed: true,
	},
	StateClosed: {
		StateConnecting: true,
	},
	StateFailed: {
		StateConnecting: true,
	},
}

func isTerminal(s State) bool {
	switch s {
	case StateClosed, StateFailed, StateSuspended, StateDisconnected:
		return true
	default:
		return false
	}
}

// StateChange is the typed event emitted on every transition, per
// spec.md §4.3.
type StateChange struct {
	Previous   State
	Current    State
	Err        error
	Generation uint64
}

// stateMachine owns the current State and its generation counter. It is
// not safe for concurrent use; all calls happen on the loop goroutine
// (SPEC_FULL.md §5).
type stateMachine struct {
	current    State
	generation uint64
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateInitialized}
}

// transition attempts to move to next, returning the StateChange event or
// an InvalidStateTransition error if the move isn't allowed by the table.
func (m *stateMachine) transition(next State, err error) (StateChange, error) {
	allowed := allowedTransitions[m.current]
	if !allowed[next] {
		return StateChange{}, newError(ErrKindInvalidStateTransition,
			"cannot move from %s to %s", m.current, next)
	}

	prev := m.current
	m.current = next
	if next == StateConnected {
		m.generation++
	}

	return StateChange{
		Previous:   prev,
		Current:    next,
		Err:        err,
		Generation: m.generation,
	}, nil
}

func (m *stateMachine) state() State { return m.current }

func (m *stateMachine) gen() uint64 { return m.generation }

// deferredWait is a one-shot awaiter on a target state; Client.transition
// settles every one held in Client.waiters (Connect and Close wait
// through onStateChange handlers instead). It resolves when the state
// machine reaches target, and rejects on any other terminal transition.
type deferredWait struct {
	target State
	done   chan struct{}
	err    error
}

func newDeferredWait(target State) *deferredWait {
	return &deferredWait{target: target, done: make(chan struct{})}
}

// resolve is called by the facade's event loop whenever a StateChange is
// observed; it returns true if this waiter has settled (one way or
// another) and should be removed.
func (w *deferredWait) resolve(change StateChange) bool {
	if change.Current == w.target {
		close(w.done)
		return true
	}
	if isTerminal(change.Current) && change.Current != w.target {
		if change.Err != nil {
			w.err = change.Err
		} else {
			w.err = newError(ErrKindInvalidStateTransition,
				"reached %s while waiting for %s", change.Current, w.target)
		}
		close(w.done)
		return true
	}
	return false
}

func (w *deferredWait) wait() <-chan struct{} { return w.done }

func (w *deferredWait) Err() error { return w.err }
