// Package sim provides a simulated native host for the radiobridge plugin.
//
// Host implements platform.NativeBridge. It answers the plugin's outbound
// activity-channel calls the way an Android embedding would, and finishes
// each launched activity by calling onActivityResult after a delay.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/radiobridge/pkg/bluetooth"
	"github.com/go-drift/radiobridge/pkg/errors"
	"github.com/go-drift/radiobridge/pkg/platform"
)

// Settings control how the simulated user and adapter respond.
type Settings struct {
	// Enabled is the initial adapter state.
	Enabled bool
	// ResultCode answers enable requests. Any non-zero code also turns the
	// adapter on.
	ResultCode int
	// DiscoverableCode answers discoverability requests.
	DiscoverableCode int
	// Delay is how long each activity stays open.
	Delay time.Duration
	// PlatformVersion is reported for platformVersion calls.
	PlatformVersion string
}

// Launch records one activity started by the plugin.
type Launch struct {
	Session     string
	RequestCode int
	Action      string
}

// Host is a simulated native side of the plugin's channels.
type Host struct {
	channel  string
	settings Settings
	nextID   atomic.Int64

	mu       sync.Mutex
	enabled  bool
	hold     bool
	held     []int
	launches []Launch
	wake     chan struct{}
	timers   []*time.Timer
	waiters  map[int64]chan []byte
	closed   bool
}

// New creates a host for the plugin channels rooted at channel.
func New(channel string, settings Settings) *Host {
	if channel == "" {
		channel = bluetooth.DefaultChannel
	}
	return &Host{
		channel:  channel,
		settings: settings,
		enabled:  settings.Enabled,
		wake:     make(chan struct{}),
		waiters:  make(map[int64]chan []byte),
	}
}

// InvokeMethod answers the plugin's outbound calls.
func (h *Host) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	if channel != h.channel+"/activity" {
		return nil, fmt.Errorf("%w: %s", platform.ErrChannelNotFound, channel)
	}
	decoded, err := platform.DefaultCodec.Decode(args)
	if err != nil {
		return nil, err
	}
	call := platform.MethodCall{Method: method, Args: decoded}

	var result any
	switch method {
	case "isEnabled":
		h.mu.Lock()
		result = h.enabled
		h.mu.Unlock()
	case "platformVersion":
		result = h.settings.PlatformVersion
	case "launch":
		if err := h.launch(call); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", platform.ErrMethodNotFound, method)
	}
	return platform.DefaultCodec.Encode(result)
}

// ReplyMethod hands the reply for callID to the caller waiting in Call.
func (h *Host) ReplyMethod(callID int64, payload []byte) error {
	h.mu.Lock()
	waiter, ok := h.waiters[callID]
	delete(h.waiters, callID)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("sim: no caller waiting for call %d", callID)
	}
	waiter <- payload
	return nil
}

// Call invokes method on channel the way native code would and waits for
// the plugin's reply.
func (h *Host) Call(ctx context.Context, channel, method string, args any) (any, error) {
	data, err := platform.DefaultCodec.Encode(args)
	if err != nil {
		return nil, err
	}
	id := h.nextID.Add(1)
	waiter := make(chan []byte, 1)
	h.mu.Lock()
	h.waiters[id] = waiter
	h.mu.Unlock()

	// Routing failures are answered too, so the reply carries the error.
	_ = platform.HandleMethodCall(channel, method, id, data)

	select {
	case payload := <-waiter:
		return platform.DecodeReply(payload)
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.waiters, id)
		h.mu.Unlock()
		return nil, fmt.Errorf("%s.%s: %w", channel, method, ctx.Err())
	}
}

// Invoke calls method on the plugin's main channel.
func (h *Host) Invoke(ctx context.Context, method string) (any, error) {
	return h.Call(ctx, h.channel, method, nil)
}

// Attach announces a new host session.
func (h *Host) Attach(ctx context.Context, session string) error {
	_, err := h.Call(ctx, h.channel+"/host", "attach", map[string]any{"session": session})
	return err
}

// Reattach announces that the host was recreated after a configuration change.
func (h *Host) Reattach(ctx context.Context, session string) error {
	_, err := h.Call(ctx, h.channel+"/host", "reattachForConfigChanges", map[string]any{"session": session})
	return err
}

// Detach announces that the host session went away.
func (h *Host) Detach(ctx context.Context) error {
	_, err := h.Call(ctx, h.channel+"/host", "detach", nil)
	return err
}

// Hold keeps launched activities open until Release.
func (h *Host) Hold() {
	h.mu.Lock()
	h.hold = true
	h.mu.Unlock()
}

// Release finishes every held activity and stops holding new ones.
func (h *Host) Release() {
	h.mu.Lock()
	held := h.held
	h.held = nil
	h.hold = false
	h.mu.Unlock()
	for _, code := range held {
		h.schedule(code)
	}
}

// Launches returns the activities started so far.
func (h *Host) Launches() []Launch {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Launch(nil), h.launches...)
}

// Enabled reports the simulated adapter state.
func (h *Host) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// WaitLaunches blocks until at least n activities were started.
func (h *Host) WaitLaunches(ctx context.Context, n int) error {
	for {
		h.mu.Lock()
		count := len(h.launches)
		wake := h.wake
		h.mu.Unlock()
		if count >= n {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return fmt.Errorf("waiting for launch %d: %w", n, ctx.Err())
		}
	}
}

// Close cancels activities that have not finished yet.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, t := range h.timers {
		t.Stop()
	}
	h.timers = nil
	h.held = nil
}

func (h *Host) launch(call platform.MethodCall) error {
	code, err := call.IntArg("requestCode")
	if err != nil {
		return err
	}
	session, _ := call.StringArg("session")
	action, _ := call.StringArg("action")

	h.mu.Lock()
	h.launches = append(h.launches, Launch{Session: session, RequestCode: code, Action: action})
	close(h.wake)
	h.wake = make(chan struct{})
	hold := h.hold
	if hold {
		h.held = append(h.held, code)
	}
	h.mu.Unlock()

	if !hold {
		h.schedule(code)
	}
	return nil
}

func (h *Host) schedule(requestCode int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.timers = append(h.timers, time.AfterFunc(h.settings.Delay, func() {
		h.finish(requestCode)
	}))
}

// finish closes the activity for requestCode and reports its result.
func (h *Host) finish(requestCode int) {
	resultCode := 0
	switch requestCode {
	case bluetooth.RequestCodeEnable:
		resultCode = h.settings.ResultCode
		if resultCode != 0 {
			h.mu.Lock()
			h.enabled = true
			h.mu.Unlock()
		}
	case bluetooth.RequestCodeDiscoverable:
		resultCode = h.settings.DiscoverableCode
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := h.Call(ctx, h.channel+"/activity", "onActivityResult", map[string]any{
		"requestCode": requestCode,
		"resultCode":  resultCode,
	})
	if err != nil {
		errors.Report(&errors.BridgeError{
			Op:      "sim.finish",
			Kind:    errors.KindPlatform,
			Channel: h.channel + "/activity",
			Err:     err,
		})
	}
}
