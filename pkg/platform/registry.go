package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/radiobridge/pkg/errors"
)

// channelRegistry manages all registered platform channels.
type channelRegistry struct {
	methodChannels map[string]*MethodChannel
	mu             sync.RWMutex
}

var registry = &channelRegistry{
	methodChannels: make(map[string]*MethodChannel),
}

func (r *channelRegistry) registerMethod(name string, ch *MethodChannel) {
	r.mu.Lock()
	r.methodChannels[name] = ch
	r.mu.Unlock()
}

func (r *channelRegistry) getMethodChannel(name string) *MethodChannel {
	r.mu.RLock()
	ch := r.methodChannels[name]
	r.mu.RUnlock()
	return ch
}

// NativeBridge defines the interface for calling native platform code.
type NativeBridge interface {
	// InvokeMethod calls a method on the native side.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)

	// ReplyMethod delivers the answer to a call native code made through
	// HandleMethodCall. It is called exactly once per callID.
	ReplyMethod(callID int64, payload []byte) error
}

var (
	bridgeMu     sync.RWMutex
	nativeBridge NativeBridge
)

// SetNativeBridge sets the native bridge implementation.
// Called by the host embedding during initialization.
func SetNativeBridge(bridge NativeBridge) {
	bridgeMu.Lock()
	nativeBridge = bridge
	bridgeMu.Unlock()
}

func currentBridge() NativeBridge {
	bridgeMu.RLock()
	defer bridgeMu.RUnlock()
	return nativeBridge
}

// invokeNative calls a method on the native side.
func invokeNative(channel, method string, args any) (any, error) {
	bridge := currentBridge()
	if bridge == nil {
		return nil, ErrPlatformUnavailable
	}

	argsData, err := DefaultCodec.Encode(args)
	if err != nil {
		return nil, err
	}

	resultData, err := bridge.InvokeMethod(channel, method, argsData)
	if err != nil {
		return nil, err
	}

	return DefaultCodec.Decode(resultData)
}

// HandleMethodCall is called from the bridge when native invokes a Go method.
// The answer is delivered later through NativeBridge.ReplyMethod with the
// same callID; the returned error only describes routing failures, which are
// still answered so native code never waits forever.
func HandleMethodCall(channel, method string, callID int64, argsData []byte) error {
	reply := newReply(channel, method, func(payload []byte) error {
		bridge := currentBridge()
		if bridge == nil {
			return ErrNotConnected
		}
		return bridge.ReplyMethod(callID, payload)
	})

	ch := registry.getMethodChannel(channel)
	if ch == nil {
		err := fmt.Errorf("%w: %s", ErrChannelNotFound, channel)
		reportPlatform("platform.HandleMethodCall", channel, err)
		reply.NotImplemented()
		return err
	}

	args, err := DefaultCodec.Decode(argsData)
	if err != nil {
		errors.Report(&errors.BridgeError{
			Op:      "platform.HandleMethodCall",
			Kind:    errors.KindParsing,
			Channel: channel,
			Err:     err,
		})
		reply.Error(fmt.Errorf("%w: %v", ErrInvalidArguments, err))
		return err
	}

	ch.handleCall(MethodCall{Method: method, Args: args}, reply)
	return nil
}

func reportPlatform(op, channel string, err error) {
	errors.Report(&errors.BridgeError{
		Op:      op,
		Kind:    errors.KindPlatform,
		Channel: channel,
		Err:     err,
	})
}

// ResetForTest resets all global platform state for test isolation.
// It clears the native bridge, forgets every registered channel and removes
// the dispatch function. This should only be called from tests.
func ResetForTest() {
	SetNativeBridge(nil)

	registry.mu.Lock()
	registry.methodChannels = make(map[string]*MethodChannel)
	registry.mu.Unlock()

	dispatchMu.Lock()
	dispatchFunc = nil
	dispatchMu.Unlock()
}
