package activity

import (
	"sync"
	"testing"

	"github.com/go-drift/radiobridge/pkg/errors"
)

// reports collects errors sent through errors.Report during a test.
type reports struct {
	mu     sync.Mutex
	errs   []*errors.BridgeError
	panics []*errors.PanicError
}

func (r *reports) HandleError(err *errors.BridgeError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reports) HandlePanic(err *errors.PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

func (r *reports) all() []*errors.BridgeError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.BridgeError(nil), r.errs...)
}

func (r *reports) panicCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panics)
}

func captureReports(t *testing.T) *reports {
	t.Helper()
	r := &reports{}
	old := errors.DefaultHandler
	errors.SetHandler(r)
	t.Cleanup(func() { errors.SetHandler(old) })
	return r
}

func isCorrelation(err *errors.BridgeError) bool {
	return err.Kind == errors.KindCorrelation
}
