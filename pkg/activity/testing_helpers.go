package activity

import (
	"fmt"
	"sync"
)

// ManualExecutor queues posted callbacks until Drain is called. Tests use it
// to control exactly when deferred work runs.
type ManualExecutor struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
}

// Post queues fn.
func (e *ManualExecutor) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.queue = append(e.queue, fn)
	return true
}

// Drain runs queued callbacks, including ones posted while draining, until
// the queue is empty. It returns how many ran.
func (e *ManualExecutor) Drain() int {
	ran := 0
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return ran
		}
		fn := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		fn()
		ran++
	}
}

// Len returns the number of queued callbacks.
func (e *ManualExecutor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Close makes later Post calls fail.
func (e *ManualExecutor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// FakeSession is a HostSession whose external activity completes only when
// the test calls Complete.
type FakeSession struct {
	id string

	mu        sync.Mutex
	active    bool
	activeErr error
	portErr   error
	launchErr error
	version   string
	launches  map[RequestKind]int
	deliver   map[RequestKind]func(int)
	// completeOnLaunch delivers this result code from inside Launch when set.
	completeOnLaunch *int
}

// NewFakeSession creates an inactive fake session.
func NewFakeSession(id string) *FakeSession {
	return &FakeSession{
		id:       id,
		version:  "Fake 1.0",
		launches: make(map[RequestKind]int),
		deliver:  make(map[RequestKind]func(int)),
	}
}

// ID returns the session identifier.
func (s *FakeSession) ID() string { return s.id }

// Register records deliver and returns a counting launcher.
func (s *FakeSession) Register(kind RequestKind, deliver func(resultCode int)) Launcher {
	s.mu.Lock()
	s.deliver[kind] = deliver
	s.mu.Unlock()
	return LauncherFunc(func() error {
		s.mu.Lock()
		if s.launchErr != nil {
			err := s.launchErr
			s.mu.Unlock()
			return err
		}
		s.launches[kind]++
		immediate := s.completeOnLaunch
		s.mu.Unlock()
		if immediate != nil {
			deliver(*immediate)
		}
		return nil
	})
}

// Capability returns the session itself as the query port.
func (s *FakeSession) Capability() (CapabilityPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.portErr != nil {
		return nil, s.portErr
	}
	return s, nil
}

// IsActive reports the fake capability state.
func (s *FakeSession) IsActive() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.activeErr
}

// PlatformVersion reports the fake platform version.
func (s *FakeSession) PlatformVersion() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

// SetActive sets the capability state returned by IsActive.
func (s *FakeSession) SetActive(active bool) {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
}

// FailQuery makes IsActive fail with err.
func (s *FakeSession) FailQuery(err error) {
	s.mu.Lock()
	s.activeErr = err
	s.mu.Unlock()
}

// FailCapability makes Capability fail with err.
func (s *FakeSession) FailCapability(err error) {
	s.mu.Lock()
	s.portErr = err
	s.mu.Unlock()
}

// FailLaunch makes every launch fail with err.
func (s *FakeSession) FailLaunch(err error) {
	s.mu.Lock()
	s.launchErr = err
	s.mu.Unlock()
}

// CompleteOnLaunch makes every launch deliver resultCode synchronously,
// which a well-behaved session never does.
func (s *FakeSession) CompleteOnLaunch(resultCode int) {
	s.mu.Lock()
	s.completeOnLaunch = &resultCode
	s.mu.Unlock()
}

// Launches returns how many times kind was launched.
func (s *FakeSession) Launches(kind RequestKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches[kind]
}

// Complete delivers resultCode through the callback registered for kind.
// It must run on the correlator's executor.
func (s *FakeSession) Complete(kind RequestKind, resultCode int) error {
	s.mu.Lock()
	deliver := s.deliver[kind]
	s.mu.Unlock()
	if deliver == nil {
		return fmt.Errorf("fake session %s: no launcher registered for %s", s.id, kind)
	}
	deliver(resultCode)
	return nil
}
