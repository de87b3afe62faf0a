package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/radiobridge/pkg/errors"
)

// MethodCall is one incoming call on a MethodChannel.
type MethodCall struct {
	Method string
	Args   any
}

// StringArg returns the string argument stored under key.
func (c MethodCall) StringArg(key string) (string, error) {
	v, ok := parseMap(c.Args)[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidArguments, key)
	}
	s, ok := parseString(v)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrInvalidArguments, key, v)
	}
	return s, nil
}

// IntArg returns the integer argument stored under key.
func (c MethodCall) IntArg(key string) (int, error) {
	v, ok := parseMap(c.Args)[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidArguments, key)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T, want number", ErrInvalidArguments, key, v)
	}
	return n, nil
}

// BoolArg returns the boolean argument stored under key, false when absent.
func (c MethodCall) BoolArg(key string) bool {
	return parseBool(parseMap(c.Args)[key])
}

// MethodHandler handles incoming method calls on a channel.
// The handler answers through reply exactly once, either before it returns
// or later from another callback.
type MethodHandler func(call MethodCall, reply *Reply)

// MethodChannel provides bidirectional method-call communication with native code.
type MethodChannel struct {
	name  string
	codec MessageCodec

	mu      sync.RWMutex
	handler MethodHandler
}

// NewMethodChannel creates a new method channel with the given name.
// Creating a second channel with the same name replaces the first in the registry.
func NewMethodChannel(name string) *MethodChannel {
	ch := &MethodChannel{
		name:  name,
		codec: DefaultCodec,
	}
	registry.registerMethod(name, ch)
	return ch
}

// Name returns the channel name.
func (c *MethodChannel) Name() string {
	return c.name
}

// SetHandler sets the handler for incoming method calls from native code.
// A nil handler makes every call answer not-implemented.
func (c *MethodChannel) SetHandler(handler MethodHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Invoke calls a method on the native side and returns the result.
// This blocks until the native side responds or an error occurs.
func (c *MethodChannel) Invoke(method string, args any) (any, error) {
	return invokeNative(c.name, method, args)
}

// handleCall routes an incoming call to the handler. A panicking handler
// answers with an error unless it already replied.
func (c *MethodChannel) handleCall(call MethodCall, reply *Reply) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler == nil {
		reply.NotImplemented()
		return
	}

	defer errors.RecoverWithCallback("platform.handleCall", func(r any) {
		if !reply.Sent() {
			reply.Error(NewChannelError(CodeError, fmt.Sprintf("%s.%s panicked: %v", c.name, call.Method, r)))
		}
	})
	handler(call, reply)
}
