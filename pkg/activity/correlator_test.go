package activity

import (
	"errors"
	"math/rand"
	"testing"
)

// Android reports RESULT_OK as -1 and RESULT_CANCELED as 0.
const (
	resultOK       = -1
	resultCanceled = 0
)

type harness struct {
	exec     *ManualExecutor
	corr     *Correlator
	sessions *SessionManager
	session  *FakeSession
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	exec := &ManualExecutor{}
	corr := NewCorrelator(exec)
	sessions := NewSessionManager(corr)
	session := NewFakeSession("s1")
	sessions.OnAttach(session)
	return &harness{exec: exec, corr: corr, sessions: sessions, session: session}
}

// recorder counts how often a resolver ran and keeps the outcomes.
type recorder struct {
	outcomes []Outcome
}

func (r *recorder) resolve(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) only(t *testing.T) Outcome {
	t.Helper()
	if len(r.outcomes) != 1 {
		t.Fatalf("resolver ran %d times, want 1", len(r.outcomes))
	}
	return r.outcomes[0]
}

func TestSubmitDeniedActivation(t *testing.T) {
	h := newHarness(t)
	var rec recorder

	if err := h.corr.Submit(ActivateCapability, rec.resolve); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := h.session.Launches(ActivateCapability); got != 1 {
		t.Fatalf("launches = %d, want 1", got)
	}
	pending, ok := h.corr.Pending()
	if !ok || pending.Kind != ActivateCapability || pending.ID == "" || pending.IssuedAt.IsZero() {
		t.Fatalf("Pending() = %+v, %v", pending, ok)
	}
	if len(rec.outcomes) != 0 {
		t.Fatal("resolver ran before the external result")
	}

	if err := h.session.Complete(ActivateCapability, resultCanceled); err != nil {
		t.Fatal(err)
	}
	out := rec.only(t)
	if out.Granted() {
		t.Error("result code 0 should not be granted")
	}
	if _, ok := h.corr.Pending(); ok {
		t.Error("slot should be empty after resolution")
	}

	var next recorder
	if err := h.corr.Submit(ActivateCapability, next.resolve); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if got := h.session.Launches(ActivateCapability); got != 2 {
		t.Errorf("launches = %d, want 2", got)
	}
}

func TestActivationResultCodes(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{resultCanceled, false},
		{resultOK, true},
		{1, true},
	}
	for _, tt := range tests {
		h := newHarness(t)
		var rec recorder
		if err := h.corr.Submit(ActivateCapability, rec.resolve); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		h.session.Complete(ActivateCapability, tt.code)
		if got := rec.only(t).Granted(); got != tt.want {
			t.Errorf("code %d: Granted() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestDiscoverableResultCodes(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{0, -1},
		{120, 120},
		{300, 300},
	}
	for _, tt := range tests {
		h := newHarness(t)
		var rec recorder
		if err := h.corr.Submit(MakeDiscoverable, rec.resolve); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		h.session.Complete(MakeDiscoverable, tt.code)
		if got := rec.only(t).DiscoverableDuration(); got != tt.want {
			t.Errorf("code %d: DiscoverableDuration() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestSubmitWhilePendingIsBusy(t *testing.T) {
	h := newHarness(t)
	var first, second recorder

	if err := h.corr.Submit(ActivateCapability, first.resolve); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	err := h.corr.Submit(MakeDiscoverable, second.resolve)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit err = %v, want ErrBusy", err)
	}
	if len(second.outcomes) != 0 {
		t.Fatal("busy resolver ran inside Submit")
	}
	h.exec.Drain()
	if out := second.only(t); !errors.Is(out.Err, ErrBusy) || out.Granted() || out.DiscoverableDuration() != -1 {
		t.Errorf("busy outcome = %+v", out)
	}
	if got := h.session.Launches(MakeDiscoverable); got != 0 {
		t.Errorf("busy request launched %d times", got)
	}

	h.session.Complete(ActivateCapability, resultOK)
	if !first.only(t).Granted() {
		t.Error("first request should be granted")
	}
	if len(second.outcomes) != 1 {
		t.Error("busy caller resolved more than once")
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	exec := &ManualExecutor{}
	corr := NewCorrelator(exec)
	var rec recorder

	if err := corr.Submit(ActivateCapability, rec.resolve); !errors.Is(err, ErrNoHostSession) {
		t.Fatalf("err = %v, want ErrNoHostSession", err)
	}
	if _, ok := corr.Pending(); ok {
		t.Error("slot installed without a session")
	}
	exec.Drain()
	if out := rec.only(t); !errors.Is(out.Err, ErrNoHostSession) {
		t.Errorf("outcome err = %v", out.Err)
	}
}

func TestLaunchFailureClearsSlot(t *testing.T) {
	reps := captureReports(t)
	h := newHarness(t)
	launchErr := errors.New("activity not found")
	h.session.FailLaunch(launchErr)
	var rec recorder

	err := h.corr.Submit(ActivateCapability, rec.resolve)
	if !errors.Is(err, launchErr) {
		t.Fatalf("err = %v, want launch error", err)
	}
	if _, ok := h.corr.Pending(); ok {
		t.Error("slot should be cleared after launch failure")
	}
	h.exec.Drain()
	if out := rec.only(t); !errors.Is(out.Err, launchErr) {
		t.Errorf("outcome err = %v", out.Err)
	}
	if len(reps.all()) != 1 || !isCorrelation(reps.all()[0]) {
		t.Errorf("reports = %v", reps.all())
	}
}

func TestOutcomeWithoutPendingIsDiscarded(t *testing.T) {
	reps := captureReports(t)
	h := newHarness(t)

	h.corr.OnExternalOutcome(ActivateCapability, resultOK)

	errs := reps.all()
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnmatchedOutcome) {
		t.Fatalf("reports = %v, want one unmatched outcome", errs)
	}
	if h.exec.Len() != 0 {
		t.Error("discarded outcome scheduled work")
	}
}

func TestOutcomeForOtherKindIsDiscarded(t *testing.T) {
	reps := captureReports(t)
	h := newHarness(t)
	var rec recorder

	if err := h.corr.Submit(ActivateCapability, rec.resolve); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.session.Complete(MakeDiscoverable, 120)
	if len(rec.outcomes) != 0 {
		t.Fatal("activation resolved by a discoverability result")
	}
	if _, ok := h.corr.Pending(); !ok {
		t.Fatal("pending request dropped by mismatched result")
	}
	if errs := reps.all(); len(errs) != 1 || errs[0].RequestID == "" {
		t.Errorf("reports = %v, want one naming the pending request", errs)
	}

	h.session.Complete(ActivateCapability, resultOK)
	if !rec.only(t).Granted() {
		t.Error("activation should resolve with its own result")
	}
}

func TestDuplicateOutcomeResolvesOnce(t *testing.T) {
	captureReports(t)
	h := newHarness(t)
	var rec recorder

	if err := h.corr.Submit(ActivateCapability, rec.resolve); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.session.Complete(ActivateCapability, resultOK)
	h.session.Complete(ActivateCapability, resultCanceled)
	h.exec.Drain()

	if !rec.only(t).Granted() {
		t.Error("first result should win")
	}
}

func TestResolverMaySubmitAgain(t *testing.T) {
	h := newHarness(t)
	var retry recorder
	var retryErr error

	err := h.corr.Submit(ActivateCapability, func(o Outcome) {
		retryErr = h.corr.Submit(ActivateCapability, retry.resolve)
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.session.Complete(ActivateCapability, resultCanceled)

	if retryErr != nil {
		t.Fatalf("re-entrant Submit: %v", retryErr)
	}
	if got := h.session.Launches(ActivateCapability); got != 2 {
		t.Errorf("launches = %d, want 2", got)
	}
	h.session.Complete(ActivateCapability, resultOK)
	if !retry.only(t).Granted() {
		t.Error("retry should be granted")
	}
}

func TestSynchronousDeliveryRunsAfterSubmit(t *testing.T) {
	h := newHarness(t)
	h.session.CompleteOnLaunch(resultOK)
	var rec recorder

	if err := h.corr.Submit(ActivateCapability, rec.resolve); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(rec.outcomes) != 0 {
		t.Fatal("resolver ran inside Submit")
	}
	h.exec.Drain()
	if !rec.only(t).Granted() {
		t.Error("deferred result should be granted")
	}
}

func TestRejectionOnClosedExecutorIsReported(t *testing.T) {
	reps := captureReports(t)
	h := newHarness(t)
	var first, second recorder
	if err := h.corr.Submit(ActivateCapability, first.resolve); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.exec.Close()

	if err := h.corr.Submit(ActivateCapability, second.resolve); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	errs := reps.all()
	if len(errs) != 1 || !errors.Is(errs[0], ErrExecutorClosed) {
		t.Errorf("reports = %v", errs)
	}
}

// TestRandomSequencesResolveExactlyOnce drives the correlator with random
// submissions and results, including duplicates and mismatched kinds, and
// checks the single-slot and exactly-once properties throughout.
func TestRandomSequencesResolveExactlyOnce(t *testing.T) {
	captureReports(t)
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 50; round++ {
		h := newHarness(t)
		var calls []int

		submit := func(kind RequestKind) {
			idx := len(calls)
			calls = append(calls, 0)
			h.corr.Submit(kind, func(Outcome) { calls[idx]++ })
		}

		for step := 0; step < 40; step++ {
			kind := Kinds[rng.Intn(len(Kinds))]
			switch rng.Intn(3) {
			case 0:
				submit(kind)
			case 1:
				h.session.Complete(kind, rng.Intn(3)-1)
			case 2:
				h.exec.Drain()
			}
			for i, n := range calls {
				if n > 1 {
					t.Fatalf("round %d: resolver %d ran %d times", round, i, n)
				}
			}
		}

		if pending, ok := h.corr.Pending(); ok {
			h.session.Complete(pending.Kind, resultOK)
		}
		h.exec.Drain()
		for i, n := range calls {
			if n != 1 {
				t.Fatalf("round %d: resolver %d ran %d times, want 1", round, i, n)
			}
		}
	}
}
