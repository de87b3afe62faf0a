package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"
)

func TestBridgeErrorString(t *testing.T) {
	err := &BridgeError{
		Op:   "correlator.Submit",
		Kind: KindCorrelation,
		Err:  stderrors.New("busy"),
	}
	want := "correlator.Submit [correlation]: busy"
	if got := err.Error(); got != want {
		t.Errorf("BridgeError.Error() = %q, want %q", got, want)
	}
}

func TestBridgeErrorWithChannel(t *testing.T) {
	err := &BridgeError{
		Op:      "plugin.handle",
		Kind:    KindParsing,
		Channel: "radiobridge/activity",
		Err:     &ParseError{Channel: "radiobridge/activity", DataType: "ActivityResult", Got: nil},
	}
	got := err.Error()
	want := "channel=radiobridge/activity"
	if !strings.Contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
}

func TestBridgeErrorUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := &BridgeError{Op: "op", Err: sentinel}
	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindInit, "init"},
		{KindPanic, "panic"},
		{KindCorrelation, "correlation"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic"}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}

	err.Op = "looper.run"
	if got, want := err.Error(), "panic in looper.run: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestParseErrorString(t *testing.T) {
	err := &ParseError{Channel: "radiobridge/host", DataType: "SessionID", Got: 123}
	want := "failed to parse SessionID from channel radiobridge/host: got int"
	if got := err.Error(); got != want {
		t.Errorf("ParseError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *BridgeError
	withHandler(t, &testHandler{onError: func(err *BridgeError) { captured = err }})

	Report(&BridgeError{Op: "test.op", Kind: KindInit, Err: stderrors.New("x")})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportNil(t *testing.T) {
	called := false
	withHandler(t, &testHandler{onError: func(*BridgeError) { called = true }})
	Report(nil)
	ReportPanic(nil)
	if called {
		t.Error("nil reports should not reach the handler")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	withHandler(t, &testHandler{onPanic: func(err *PanicError) { captured = err }})

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
}

func TestRecoverWithCallback(t *testing.T) {
	withHandler(t, &testHandler{})

	var got any
	func() {
		defer RecoverWithCallback("test.callback", func(r any) { got = r })
		panic(42)
	}()
	if got != 42 {
		t.Errorf("callback got %v, want 42", got)
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Fatal("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	old := DefaultHandler
	t.Cleanup(func() { SetHandler(old) })

	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Out: &buf}
	h.HandleError(&BridgeError{Op: "plugin.reply", Kind: KindPlatform, Channel: "radiobridge", Err: stderrors.New("closed")})
	if got, want := buf.String(), "[radiobridge error] plugin.reply: closed\n"; got != want {
		t.Errorf("terse output = %q, want %q", got, want)
	}

	buf.Reset()
	h.Verbose = true
	h.HandleError(&BridgeError{
		Op:        "correlator.OnExternalOutcome",
		Kind:      KindCorrelation,
		Channel:   "radiobridge/activity",
		RequestID: "req-1",
		Err:       stderrors.New("no pending request"),
		Timestamp: time.Now(),
	})
	for _, want := range []string{"[correlation]", "channel=radiobridge/activity", "request=req-1", "no pending request"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("verbose output %q should contain %q", buf.String(), want)
		}
	}

	buf.Reset()
	h.HandlePanic(&PanicError{Op: "looper.run", Value: "boom", StackTrace: "frame"})
	if !strings.Contains(buf.String(), "[radiobridge panic] looper.run: boom") || !strings.Contains(buf.String(), "frame") {
		t.Errorf("panic output = %q", buf.String())
	}
}

func withHandler(t *testing.T, h ErrorHandler) {
	t.Helper()
	old := DefaultHandler
	SetHandler(h)
	t.Cleanup(func() { SetHandler(old) })
}

type testHandler struct {
	onError func(*BridgeError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *BridgeError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
