package platform

import (
	"fmt"
	"sync"
)

// Invocation records one outbound call made through a MethodChannel.
type Invocation struct {
	Channel string
	Method  string
	Args    any
}

// TestBridge is a NativeBridge that records outbound invocations and the
// replies sent for inbound calls. OnInvoke, when set, supplies the native
// side's answer to an invocation.
type TestBridge struct {
	OnInvoke func(channel, method string, args any) (any, error)

	mu          sync.Mutex
	invocations []Invocation
	replies     map[int64][][]byte
}

// InvokeMethod records the call and answers through OnInvoke.
func (b *TestBridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	decoded, err := DefaultCodec.Decode(args)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.invocations = append(b.invocations, Invocation{Channel: channel, Method: method, Args: decoded})
	onInvoke := b.OnInvoke
	b.mu.Unlock()

	var result any
	if onInvoke != nil {
		result, err = onInvoke(channel, method, decoded)
		if err != nil {
			return nil, err
		}
	}
	return DefaultCodec.Encode(result)
}

// ReplyMethod records the payload sent for callID.
func (b *TestBridge) ReplyMethod(callID int64, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.replies == nil {
		b.replies = make(map[int64][][]byte)
	}
	b.replies[callID] = append(b.replies[callID], payload)
	return nil
}

// Invocations returns a copy of the recorded outbound calls.
func (b *TestBridge) Invocations() []Invocation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Invocation(nil), b.invocations...)
}

// InvocationsOf returns the recorded outbound calls for one method.
func (b *TestBridge) InvocationsOf(method string) []Invocation {
	var out []Invocation
	for _, inv := range b.Invocations() {
		if inv.Method == method {
			out = append(out, inv)
		}
	}
	return out
}

// ReplyCount returns how many replies were sent for callID.
func (b *TestBridge) ReplyCount(callID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.replies[callID])
}

// Reply decodes the first reply sent for callID. Check ReplyCount first;
// a call without a reply decodes to ErrNotConnected.
func (b *TestBridge) Reply(callID int64) (any, error) {
	b.mu.Lock()
	payloads := b.replies[callID]
	b.mu.Unlock()
	if len(payloads) == 0 {
		return nil, ErrNotConnected
	}
	return DecodeReply(payloads[0])
}

// Call encodes args and delivers an inbound call as native code would.
func (b *TestBridge) Call(channel, method string, callID int64, args any) error {
	data, err := DefaultCodec.Encode(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	return HandleMethodCall(channel, method, callID, data)
}

// SetupTestBridge installs a recording native bridge and a synchronous
// dispatch function for testing. The cleanup function should be
// testing.T.Cleanup or equivalent; it registers a teardown that calls
// ResetForTest.
//
//	bridge := platform.SetupTestBridge(t.Cleanup)
func SetupTestBridge(cleanup func(func())) *TestBridge {
	bridge := &TestBridge{}
	SetNativeBridge(bridge)
	RegisterDispatch(func(cb func()) { cb() })
	cleanup(ResetForTest)
	return bridge
}
