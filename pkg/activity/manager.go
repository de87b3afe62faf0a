package activity

import (
	"fmt"

	"github.com/go-drift/radiobridge/pkg/errors"
)

// SessionState is the attachment state of the host surface.
type SessionState int

const (
	// SessionDetached means no host session is available. Initial state.
	SessionDetached SessionState = iota
	// SessionAttached means a host session can launch external activities.
	SessionAttached
)

func (s SessionState) String() string {
	if s == SessionAttached {
		return "attached"
	}
	return "detached"
}

// SessionManager follows the attach and detach transitions of the host
// surface and rebinds the correlator to each new session.
//
// Like the Correlator it drives, a SessionManager is confined to the
// correlator's executor.
type SessionManager struct {
	correlator *Correlator
	state      SessionState
	session    HostSession
	generation uint64
}

// NewSessionManager creates a detached manager for correlator.
func NewSessionManager(correlator *Correlator) *SessionManager {
	return &SessionManager{correlator: correlator}
}

// OnAttach installs session as current and registers one launcher per
// request kind on it. A request that is already pending is not re-issued;
// its result is expected through the launchers registered here.
func (m *SessionManager) OnAttach(session HostSession) {
	if session == nil {
		errors.Report(&errors.BridgeError{
			Op:   "sessions.OnAttach",
			Kind: errors.KindInit,
			Err:  fmt.Errorf("%w: nil session", ErrNoHostSession),
		})
		return
	}

	m.generation++
	generation := m.generation
	m.session = session
	m.state = SessionAttached

	launchers := make(map[RequestKind]Launcher, len(Kinds))
	for _, kind := range Kinds {
		launchers[kind] = session.Register(kind, func(resultCode int) {
			m.deliver(generation, session, kind, resultCode)
		})
	}
	m.correlator.bind(launchers)
}

// OnDetach forgets the current session. A pending request stays pending.
func (m *SessionManager) OnDetach() {
	m.generation++
	m.session = nil
	m.state = SessionDetached
	m.correlator.bind(nil)
}

// OnReattachForConfigChange swaps in a session recreated for a configuration
// change. It is OnDetach followed by OnAttach; the pending request survives.
func (m *SessionManager) OnReattachForConfigChange(session HostSession) {
	m.OnDetach()
	m.OnAttach(session)
}

// State returns the current attachment state.
func (m *SessionManager) State() SessionState {
	return m.state
}

// Session returns the current session, or nil while detached.
func (m *SessionManager) Session() HostSession {
	return m.session
}

// Capability returns the current session's capability query port.
func (m *SessionManager) Capability() (CapabilityPort, error) {
	if m.session == nil {
		return nil, ErrNoHostSession
	}
	port, err := m.session.Capability()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", m.session.ID(), err)
	}
	if port == nil {
		return nil, fmt.Errorf("session %s: no capability port", m.session.ID())
	}
	return port, nil
}

// deliver forwards a result from a registered launcher, dropping results
// from sessions that have since been replaced.
func (m *SessionManager) deliver(generation uint64, session HostSession, kind RequestKind, resultCode int) {
	if generation != m.generation {
		errors.Report(&errors.BridgeError{
			Op:   "sessions.deliver",
			Kind: errors.KindCorrelation,
			Err:  fmt.Errorf("%w: session %s, %s result %d", ErrStaleSession, session.ID(), kind, resultCode),
		})
		return
	}
	m.correlator.OnExternalOutcome(kind, resultCode)
}
