// Package activity correlates requests for privileged platform actions with
// the results reported, much later, by the external system activity that
// performs them.
//
// A Correlator holds at most one PendingRequest. A SessionManager tracks the
// host surface able to launch the external activity and rebinds the
// correlator to every new surface without touching the pending request, so a
// result that arrives after the surface was recreated still reaches the
// caller that asked for it.
//
// All Correlator and SessionManager methods run on one logical thread, an
// Executor such as Looper. Host sessions must marshal result callbacks onto
// that executor before delivering them.
package activity

import (
	"errors"
	"time"
)

// RequestKind identifies the external action a request asks for.
type RequestKind int

const (
	// ActivateCapability asks the platform to switch the capability on.
	ActivateCapability RequestKind = iota + 1
	// MakeDiscoverable asks the platform to make the device discoverable.
	MakeDiscoverable
)

// Kinds lists every request kind a host session must provide a launcher for.
var Kinds = []RequestKind{ActivateCapability, MakeDiscoverable}

func (k RequestKind) String() string {
	switch k {
	case ActivateCapability:
		return "activate"
	case MakeDiscoverable:
		return "discoverable"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned when a request is already pending.
	ErrBusy = errors.New("activity: a request is already pending")

	// ErrNoHostSession is returned when no host session is attached.
	ErrNoHostSession = errors.New("activity: no host session attached")

	// ErrLaunchFailed wraps the error returned by a Launcher.
	ErrLaunchFailed = errors.New("activity: launch failed")

	// ErrUnmatchedOutcome is reported when a result arrives for a request
	// that is no longer pending.
	ErrUnmatchedOutcome = errors.New("activity: outcome does not match a pending request")

	// ErrStaleSession is reported when a replaced session delivers a result.
	ErrStaleSession = errors.New("activity: result delivered by a replaced session")

	// ErrExecutorClosed is returned when work is posted to a closed executor.
	ErrExecutorClosed = errors.New("activity: executor closed")
)

// Outcome is the single answer delivered for a request.
type Outcome struct {
	Kind RequestKind
	// ResultCode is the platform-native code reported by the external activity.
	ResultCode int
	// Err is set when the request was rejected or could not be launched.
	Err error
}

// Granted reports whether an activation was accepted. Any non-zero result
// code counts as success.
func (o Outcome) Granted() bool {
	return o.Err == nil && o.ResultCode != 0
}

// DiscoverableDuration returns the granted discoverability duration, or -1
// when the request was refused, canceled or failed.
func (o Outcome) DiscoverableDuration() int {
	if o.Err != nil || o.ResultCode == 0 {
		return -1
	}
	return o.ResultCode
}

// Resolver receives the outcome of a request. It is invoked exactly once.
type Resolver func(Outcome)

// PendingRequest is the request currently waiting for its external result.
type PendingRequest struct {
	// ID identifies the request in diagnostics.
	ID   string
	Kind RequestKind
	// IssuedAt is when the request was accepted. It is informational only;
	// requests never expire.
	IssuedAt time.Time

	resolve Resolver
}
