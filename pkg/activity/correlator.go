package activity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/radiobridge/pkg/errors"
)

// Correlator owns the single pending-request slot and routes external
// results back to the caller that issued the matching request.
//
// A Correlator is confined to its executor: every method must be called from
// a callback running on it.
type Correlator struct {
	exec Executor
	now  func() time.Time

	launchers  map[RequestKind]Launcher
	slot       *PendingRequest
	submitting bool
}

// NewCorrelator creates a correlator whose deferred resolutions are posted
// to exec.
func NewCorrelator(exec Executor) *Correlator {
	return &Correlator{
		exec: exec,
		now:  time.Now,
	}
}

// Submit installs a pending request for kind and launches the external
// activity. It fails with ErrBusy while another request is pending and with
// ErrNoHostSession when no session is bound; a rejected resolver still
// receives exactly one Outcome carrying that error. Resolvers never run
// before Submit returns.
func (c *Correlator) Submit(kind RequestKind, resolve Resolver) error {
	if resolve == nil {
		resolve = func(Outcome) {}
	}
	if c.slot != nil {
		c.reject(kind, resolve, ErrBusy)
		return ErrBusy
	}
	launcher := c.launchers[kind]
	if launcher == nil {
		c.reject(kind, resolve, ErrNoHostSession)
		return ErrNoHostSession
	}

	req := &PendingRequest{
		ID:       uuid.NewString(),
		Kind:     kind,
		IssuedAt: c.now(),
		resolve:  resolve,
	}
	c.slot = req

	if err := c.launch(launcher); err != nil {
		if c.slot == req {
			c.slot = nil
		}
		err = fmt.Errorf("%w: %s: %w", ErrLaunchFailed, kind, err)
		errors.Report(&errors.BridgeError{
			Op:        "correlator.Submit",
			Kind:      errors.KindCorrelation,
			RequestID: req.ID,
			Err:       err,
		})
		c.reject(kind, resolve, err)
		return err
	}
	return nil
}

// OnExternalOutcome consumes the pending request and resolves it with
// resultCode. Results with no pending request, or for a different kind, are
// reported and discarded.
func (c *Correlator) OnExternalOutcome(kind RequestKind, resultCode int) {
	if c.submitting {
		// Delivered from inside Launch; resolve after Submit returns.
		c.post(func() { c.OnExternalOutcome(kind, resultCode) })
		return
	}

	req := c.slot
	if req == nil || req.Kind != kind {
		var pending string
		if req != nil {
			pending = req.ID
		}
		errors.Report(&errors.BridgeError{
			Op:        "correlator.OnExternalOutcome",
			Kind:      errors.KindCorrelation,
			RequestID: pending,
			Err:       fmt.Errorf("%w: %s result %d", ErrUnmatchedOutcome, kind, resultCode),
		})
		return
	}

	c.slot = nil
	req.resolve(Outcome{Kind: kind, ResultCode: resultCode})
}

// Pending returns a snapshot of the pending request, if any.
func (c *Correlator) Pending() (PendingRequest, bool) {
	if c.slot == nil {
		return PendingRequest{}, false
	}
	snapshot := *c.slot
	snapshot.resolve = nil
	return snapshot, true
}

func (c *Correlator) launch(launcher Launcher) error {
	c.submitting = true
	defer func() { c.submitting = false }()
	return launcher.Launch()
}

// bind replaces the launchers used for new requests. The pending slot is
// left untouched.
func (c *Correlator) bind(launchers map[RequestKind]Launcher) {
	c.launchers = launchers
}

func (c *Correlator) reject(kind RequestKind, resolve Resolver, err error) {
	c.post(func() { resolve(Outcome{Kind: kind, Err: err}) })
}

func (c *Correlator) post(fn func()) {
	if !c.exec.Post(fn) {
		errors.Report(&errors.BridgeError{
			Op:   "correlator.post",
			Kind: errors.KindCorrelation,
			Err:  ErrExecutorClosed,
		})
	}
}
