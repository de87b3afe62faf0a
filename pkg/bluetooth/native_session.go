package bluetooth

import (
	"fmt"

	"github.com/go-drift/radiobridge/pkg/activity"
	"github.com/go-drift/radiobridge/pkg/errors"
	"github.com/go-drift/radiobridge/pkg/platform"
)

// Request codes tag each launched activity so its result can be routed back.
const (
	RequestCodeEnable       = 1337
	RequestCodeDiscoverable = 2137
)

// Intent actions started for each request kind.
const (
	ActionRequestEnable       = "android.bluetooth.adapter.action.REQUEST_ENABLE"
	ActionRequestDiscoverable = "android.bluetooth.adapter.action.REQUEST_DISCOVERABLE"
)

var requestCodes = map[activity.RequestKind]int{
	activity.ActivateCapability: RequestCodeEnable,
	activity.MakeDiscoverable:   RequestCodeDiscoverable,
}

var actions = map[activity.RequestKind]string{
	activity.ActivateCapability: ActionRequestEnable,
	activity.MakeDiscoverable:   ActionRequestDiscoverable,
}

// resultRouter maps request codes to the deliver callbacks registered by the
// most recently attached session. Results from an activity launched by an
// earlier session therefore reach the launcher bound on its successor.
// Only touched on the executor.
type resultRouter struct {
	channel  string
	handlers map[int]func(resultCode int)
}

func newResultRouter(channel string) *resultRouter {
	return &resultRouter{
		channel:  channel,
		handlers: make(map[int]func(int)),
	}
}

func (r *resultRouter) register(requestCode int, deliver func(int)) {
	r.handlers[requestCode] = deliver
}

func (r *resultRouter) route(requestCode, resultCode int) bool {
	deliver := r.handlers[requestCode]
	if deliver == nil {
		errors.Report(&errors.BridgeError{
			Op:      "bluetooth.routeResult",
			Kind:    errors.KindCorrelation,
			Channel: r.channel,
			Err:     fmt.Errorf("no launcher for request code %d (result %d)", requestCode, resultCode),
		})
		return false
	}
	deliver(resultCode)
	return true
}

// nativeSession is a HostSession backed by the native host: launches and
// adapter queries are method calls on the activity channel, and results
// come back as onActivityResult calls routed by the plugin.
type nativeSession struct {
	id      string
	channel *platform.MethodChannel
	results *resultRouter
}

func newNativeSession(id string, channel *platform.MethodChannel, results *resultRouter) *nativeSession {
	return &nativeSession{id: id, channel: channel, results: results}
}

func (s *nativeSession) ID() string {
	return s.id
}

func (s *nativeSession) Register(kind activity.RequestKind, deliver func(resultCode int)) activity.Launcher {
	code := requestCodes[kind]
	s.results.register(code, deliver)
	return activity.LauncherFunc(func() error {
		_, err := s.channel.Invoke("launch", map[string]any{
			"session":     s.id,
			"requestCode": code,
			"action":      actions[kind],
		})
		return err
	})
}

func (s *nativeSession) Capability() (activity.CapabilityPort, error) {
	return s, nil
}

// IsActive asks the native adapter whether it is enabled.
func (s *nativeSession) IsActive() (bool, error) {
	result, err := s.channel.Invoke("isEnabled", map[string]any{"session": s.id})
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	case map[string]any:
		if enabled, ok := v["enabled"].(bool); ok {
			return enabled, nil
		}
	}
	return false, &errors.ParseError{Channel: s.channel.Name(), DataType: "AdapterState", Got: result}
}

func (s *nativeSession) PlatformVersion() (string, error) {
	result, err := s.channel.Invoke("platformVersion", map[string]any{"session": s.id})
	if err != nil {
		return "", err
	}
	version, ok := result.(string)
	if !ok {
		return "", &errors.ParseError{Channel: s.channel.Name(), DataType: "PlatformVersion", Got: result}
	}
	return version, nil
}
