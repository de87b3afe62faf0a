// Package bluetooth exposes Bluetooth adapter activation and discoverability
// requests to application code and to native callers on a method channel.
//
// Both requests are carried out by a system activity outside the process.
// The package hands them to an activity.Correlator, which allows one
// outstanding request at a time and routes the activity's result back to the
// caller that asked for it.
package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/go-drift/radiobridge/pkg/activity"
	"github.com/go-drift/radiobridge/pkg/platform"
)

// Facade is the capability surface application code calls. Its exported
// methods are safe for concurrent use; the work runs on the executor shared
// with the correlator.
type Facade struct {
	exec       activity.Executor
	correlator *activity.Correlator
	sessions   *activity.SessionManager
}

// NewFacade creates a facade over correlator and sessions, both confined to exec.
func NewFacade(exec activity.Executor, correlator *activity.Correlator, sessions *activity.SessionManager) *Facade {
	return &Facade{
		exec:       exec,
		correlator: correlator,
		sessions:   sessions,
	}
}

// QueryActive reports whether the adapter is enabled. It fails with
// platform.ErrPlatformUnavailable when no session is attached or the adapter
// cannot be queried.
func (f *Facade) QueryActive() (active bool, err error) {
	if !f.wait(func() { active, err = f.queryActive() }) {
		return false, activity.ErrExecutorClosed
	}
	return active, err
}

// RequestActivate asks the platform to enable the adapter and waits for the
// answer. It returns true immediately when the adapter is already enabled.
// When ctx ends first the request stays pending; its late result is dropped.
func (f *Facade) RequestActivate(ctx context.Context) (bool, error) {
	type result struct {
		granted bool
		err     error
	}
	done := make(chan result, 1)
	f.Activate(func(granted bool, err error) {
		done <- result{granted, err}
	})
	select {
	case r := <-done:
		return r.granted, r.err
	case <-ctx.Done():
		return false, contextError(ctx)
	}
}

// RequestDiscoverable asks the platform to make the device discoverable and
// waits for the granted duration, or -1 when the user refused.
func (f *Facade) RequestDiscoverable(ctx context.Context) (int, error) {
	type result struct {
		duration int
		err      error
	}
	done := make(chan result, 1)
	f.Discoverable(func(duration int, err error) {
		done <- result{duration, err}
	})
	select {
	case r := <-done:
		return r.duration, r.err
	case <-ctx.Done():
		return -1, contextError(ctx)
	}
}

// PlatformVersion describes the platform the attached session runs on.
func (f *Facade) PlatformVersion() (version string, err error) {
	if !f.wait(func() { version, err = f.platformVersion() }) {
		return "", activity.ErrExecutorClosed
	}
	return version, err
}

// Activate is the callback form of RequestActivate. done runs on the executor.
func (f *Facade) Activate(done func(granted bool, err error)) {
	if !f.exec.Post(func() { f.activate(done) }) {
		done(false, activity.ErrExecutorClosed)
	}
}

// Discoverable is the callback form of RequestDiscoverable. done runs on the executor.
func (f *Facade) Discoverable(done func(duration int, err error)) {
	if !f.exec.Post(func() { f.discoverable(done) }) {
		done(-1, activity.ErrExecutorClosed)
	}
}

func (f *Facade) queryActive() (bool, error) {
	port, err := f.sessions.Capability()
	if err != nil {
		return false, fmt.Errorf("%w: %w", platform.ErrPlatformUnavailable, err)
	}
	active, err := port.IsActive()
	if err != nil {
		return false, fmt.Errorf("%w: %w", platform.ErrPlatformUnavailable, err)
	}
	return active, nil
}

// activate short-circuits when the adapter is on. A failed query still
// submits, so a missing session surfaces as activity.ErrNoHostSession.
func (f *Facade) activate(done func(bool, error)) {
	if active, err := f.queryActive(); err == nil && active {
		done(true, nil)
		return
	}
	// Submit errors also reach the resolver.
	_ = f.correlator.Submit(activity.ActivateCapability, func(o activity.Outcome) {
		if o.Err != nil {
			done(false, o.Err)
			return
		}
		done(o.Granted(), nil)
	})
}

func (f *Facade) discoverable(done func(int, error)) {
	_ = f.correlator.Submit(activity.MakeDiscoverable, func(o activity.Outcome) {
		if o.Err != nil {
			done(-1, o.Err)
			return
		}
		done(o.DiscoverableDuration(), nil)
	})
}

func (f *Facade) platformVersion() (string, error) {
	if reporter, ok := f.sessions.Session().(activity.VersionReporter); ok {
		return reporter.PlatformVersion()
	}
	return fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH), nil
}

func (f *Facade) wait(fn func()) bool {
	done := make(chan struct{})
	if !f.exec.Post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return platform.ErrTimeout
	}
	return platform.ErrCanceled
}
