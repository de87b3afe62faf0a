package platform

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// replyEnvelope is the wire shape of every answer sent back to native code.
type replyEnvelope struct {
	Result         any           `json:"result"`
	Error          *ChannelError `json:"error,omitempty"`
	NotImplemented bool          `json:"notImplemented,omitempty"`
}

// Reply delivers the single answer to one incoming method call.
// Only the first of Success, Error or NotImplemented is sent; later calls
// are reported and dropped.
type Reply struct {
	channel string
	method  string
	send    func(payload []byte) error
	sent    atomic.Bool
}

func newReply(channel, method string, send func(payload []byte) error) *Reply {
	return &Reply{channel: channel, method: method, send: send}
}

// Success answers the call with a result value.
func (r *Reply) Success(result any) {
	r.deliver(replyEnvelope{Result: result})
}

// Error answers the call with a failure. A *ChannelError is sent as is;
// any other error is wrapped in one.
func (r *Reply) Error(err error) {
	r.deliver(replyEnvelope{Error: toChannelError(err)})
}

// NotImplemented answers the call with the unsupported-operation marker.
func (r *Reply) NotImplemented() {
	r.deliver(replyEnvelope{NotImplemented: true})
}

// Sent reports whether an answer has already been delivered.
func (r *Reply) Sent() bool {
	return r.sent.Load()
}

func (r *Reply) deliver(env replyEnvelope) {
	if !r.sent.CompareAndSwap(false, true) {
		reportPlatform("platform.Reply", r.channel, fmt.Errorf("%w: %s", ErrReplyAlreadySent, r.method))
		return
	}
	data, err := DefaultCodec.Encode(env)
	if err != nil {
		reportPlatform("platform.Reply.encode", r.channel, err)
		data, _ = DefaultCodec.Encode(replyEnvelope{Error: NewChannelError(CodeError, err.Error())})
	}
	if err := r.send(data); err != nil {
		reportPlatform("platform.Reply.send", r.channel, err)
	}
}

func toChannelError(err error) *ChannelError {
	var ce *ChannelError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, ErrInvalidArguments) {
		return NewChannelError(CodeInvalidArguments, err.Error())
	}
	return NewChannelError(CodeError, err.Error())
}

// SyncHandler adapts a request/response style function to a MethodHandler.
// Returning ErrMethodNotFound produces a not-implemented reply.
func SyncHandler(fn func(call MethodCall) (any, error)) MethodHandler {
	return func(call MethodCall, reply *Reply) {
		result, err := fn(call)
		switch {
		case errors.Is(err, ErrMethodNotFound):
			reply.NotImplemented()
		case err != nil:
			reply.Error(err)
		default:
			reply.Success(result)
		}
	}
}

// DecodeReply decodes a payload produced by Reply. A not-implemented answer
// decodes to ErrMethodNotFound and a failure to *ChannelError.
func DecodeReply(data []byte) (any, error) {
	decoded, err := DefaultCodec.Decode(data)
	if err != nil {
		return nil, err
	}
	m := parseMap(decoded)
	if m == nil {
		return nil, fmt.Errorf("%w: reply is %T", ErrInvalidArguments, decoded)
	}
	if parseBool(m["notImplemented"]) {
		return nil, ErrMethodNotFound
	}
	if e := parseMap(m["error"]); e != nil {
		code, _ := parseString(e["code"])
		message, _ := parseString(e["message"])
		return nil, &ChannelError{Code: code, Message: message, Details: e["details"]}
	}
	return m["result"], nil
}
