package bluetooth

import (
	"github.com/go-drift/radiobridge/pkg/activity"
	"github.com/go-drift/radiobridge/pkg/errors"
	"github.com/go-drift/radiobridge/pkg/platform"
)

// DefaultChannel is the method channel native callers use unless configured otherwise.
const DefaultChannel = "radiobridge"

// Options configures a Plugin.
type Options struct {
	// Channel is the base channel name. The host lifecycle and activity
	// result channels are Channel+"/host" and Channel+"/activity".
	Channel string
	// Executor runs all correlator work. Nil starts a Looper owned by the plugin.
	Executor activity.Executor
}

// Plugin wires the facade to native code. It serves three channels:
//
//	<name>           queryActive, requestActivate, requestDiscoverable, getPlatformVersion
//	<name>/host      attach, detach, reattachForConfigChanges
//	<name>/activity  onActivityResult (inbound); launch, isEnabled, platformVersion (outbound)
type Plugin struct {
	exec     activity.Executor
	looper   *activity.Looper
	facade   *Facade
	sessions *activity.SessionManager
	results  *resultRouter

	calls      *platform.MethodChannel
	host       *platform.MethodChannel
	activities *platform.MethodChannel
}

// NewPlugin registers the plugin's channels and installs the executor as the
// platform dispatch target.
func NewPlugin(opts Options) *Plugin {
	name := opts.Channel
	if name == "" {
		name = DefaultChannel
	}

	p := &Plugin{exec: opts.Executor}
	if p.exec == nil {
		p.looper = activity.NewLooper()
		p.exec = p.looper
	}

	correlator := activity.NewCorrelator(p.exec)
	p.sessions = activity.NewSessionManager(correlator)
	p.facade = NewFacade(p.exec, correlator, p.sessions)
	p.results = newResultRouter(name + "/activity")

	p.calls = platform.NewMethodChannel(name)
	p.host = platform.NewMethodChannel(name + "/host")
	p.activities = platform.NewMethodChannel(name + "/activity")
	p.calls.SetHandler(p.handleCall)
	p.host.SetHandler(p.handleHost)
	p.activities.SetHandler(p.handleActivity)

	platform.RegisterDispatch(func(cb func()) {
		if !p.exec.Post(cb) {
			errors.Report(&errors.BridgeError{
				Op:   "bluetooth.dispatch",
				Kind: errors.KindPlatform,
				Err:  activity.ErrExecutorClosed,
			})
		}
	})
	return p
}

// Facade returns the capability facade for in-process callers.
func (p *Plugin) Facade() *Facade {
	return p.facade
}

// Channel returns the name of the main method channel.
func (p *Plugin) Channel() string {
	return p.calls.Name()
}

// Close stops the plugin's own looper, if it started one. Pending requests
// are left unresolved.
func (p *Plugin) Close() {
	p.calls.SetHandler(nil)
	p.host.SetHandler(nil)
	p.activities.SetHandler(nil)
	if p.looper != nil {
		p.looper.Close()
	}
}

func (p *Plugin) handleCall(call platform.MethodCall, reply *platform.Reply) {
	switch call.Method {
	case "queryActive", "isEnabled":
		p.post(reply, func() {
			active, err := p.facade.queryActive()
			if err != nil {
				reply.Error(channelError(err))
				return
			}
			reply.Success(active)
		})
	case "requestActivate", "enableBluetooth":
		p.post(reply, func() {
			p.facade.activate(func(granted bool, err error) {
				if err != nil {
					reply.Error(channelError(err))
					return
				}
				reply.Success(granted)
			})
		})
	case "requestDiscoverable":
		p.post(reply, func() {
			p.facade.discoverable(func(duration int, err error) {
				if err != nil {
					reply.Error(channelError(err))
					return
				}
				reply.Success(duration)
			})
		})
	case "getPlatformVersion":
		p.post(reply, func() {
			version, err := p.facade.platformVersion()
			if err != nil {
				reply.Error(channelError(err))
				return
			}
			reply.Success(version)
		})
	default:
		reply.NotImplemented()
	}
}

func (p *Plugin) handleHost(call platform.MethodCall, reply *platform.Reply) {
	switch call.Method {
	case "attach", "reattachForConfigChanges":
		id, err := call.StringArg("session")
		if err != nil {
			reply.Error(err)
			return
		}
		session := newNativeSession(id, p.activities, p.results)
		reattach := call.Method == "reattachForConfigChanges"
		p.post(reply, func() {
			if reattach {
				p.sessions.OnReattachForConfigChange(session)
			} else {
				p.sessions.OnAttach(session)
			}
			reply.Success(nil)
		})
	case "detach":
		p.post(reply, func() {
			p.sessions.OnDetach()
			reply.Success(nil)
		})
	default:
		reply.NotImplemented()
	}
}

// handleActivity accepts activity results. They are acknowledged at once
// and routed on the executor.
func (p *Plugin) handleActivity(call platform.MethodCall, reply *platform.Reply) {
	if call.Method != "onActivityResult" {
		reply.NotImplemented()
		return
	}
	requestCode, err := call.IntArg("requestCode")
	if err != nil {
		reply.Error(err)
		return
	}
	resultCode, err := call.IntArg("resultCode")
	if err != nil {
		reply.Error(err)
		return
	}
	if !platform.Dispatch(func() { p.results.route(requestCode, resultCode) }) {
		reply.Error(channelError(activity.ErrExecutorClosed))
		return
	}
	reply.Success(nil)
}

// post runs fn on the executor, answering the call with an error when the
// executor no longer accepts work.
func (p *Plugin) post(reply *platform.Reply, fn func()) {
	if !p.exec.Post(fn) {
		reply.Error(channelError(activity.ErrExecutorClosed))
	}
}
