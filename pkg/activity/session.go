package activity

// Launcher starts the external activity for one request kind. Launch is fire
// and forget; the result arrives later through the deliver callback the
// launcher was registered with.
type Launcher interface {
	Launch() error
}

// LauncherFunc adapts a function to a Launcher.
type LauncherFunc func() error

// Launch calls f.
func (f LauncherFunc) Launch() error { return f() }

// CapabilityPort answers whether the capability is currently active.
// Results are never cached.
type CapabilityPort interface {
	IsActive() (bool, error)
}

// HostSession is one live binding to the environment that can launch the
// external activity, typically one screen instance.
type HostSession interface {
	// ID identifies the session in diagnostics.
	ID() string

	// Register returns a launcher for kind. The session calls deliver once
	// per completed launch, on the correlator's executor, with the
	// platform-native result code.
	Register(kind RequestKind, deliver func(resultCode int)) Launcher

	// Capability returns the query port for the capability, or an error
	// when the platform manager cannot be obtained.
	Capability() (CapabilityPort, error)
}

// VersionReporter is implemented by sessions that can describe the platform
// they run on.
type VersionReporter interface {
	PlatformVersion() (string, error)
}
