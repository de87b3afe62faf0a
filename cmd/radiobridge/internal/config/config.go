// Package config loads the optional radiobridge.yaml used by the radiobridge CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "radiobridge.yaml"

// EnvPath names the environment variable that overrides the file path.
const EnvPath = "RADIOBRIDGE_CONFIG"

// SupportedMajor is the channel protocol major version this build speaks.
const SupportedMajor = "v1"

// Defaults applied when a value is absent from the file.
const (
	DefaultChannel          = "radiobridge"
	DefaultProtocol         = "v1.0.0"
	DefaultResultCode       = -1
	DefaultDiscoverableCode = 120
	DefaultDelay            = 50 * time.Millisecond
	DefaultPlatformVersion  = "Android 14 (simulated)"
)

// Config represents the optional radiobridge.yaml configuration.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Log       LogConfig       `yaml:"log"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// BridgeConfig contains method channel settings.
type BridgeConfig struct {
	Channel  string `yaml:"channel,omitempty"`
	Protocol string `yaml:"protocol,omitempty"`
}

// LogConfig contains error reporting settings.
type LogConfig struct {
	Verbose bool `yaml:"verbose,omitempty"`
}

// SimulatorConfig describes how the simulated host answers. Pointer fields
// distinguish an explicit zero from an absent value.
type SimulatorConfig struct {
	Enabled          *bool  `yaml:"enabled,omitempty"`
	ResultCode       *int   `yaml:"result_code,omitempty"`
	DiscoverableCode *int   `yaml:"discoverable_code,omitempty"`
	Delay            string `yaml:"delay,omitempty"`
	PlatformVersion  string `yaml:"platform_version,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Path      string    `yaml:"-"`
	Channel   string    `yaml:"channel"`
	Protocol  string    `yaml:"protocol"`
	Verbose   bool      `yaml:"verbose"`
	Simulator Simulator `yaml:"simulator"`
}

// Simulator contains resolved simulated host settings.
type Simulator struct {
	Enabled          bool          `yaml:"enabled"`
	ResultCode       int           `yaml:"result_code"`
	DiscoverableCode int           `yaml:"discoverable_code"`
	Delay            time.Duration `yaml:"delay"`
	PlatformVersion  string        `yaml:"platform_version"`
}

// Path picks the configuration file: the flag value, then $RADIOBRIDGE_CONFIG,
// then radiobridge.yaml in the working directory.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(EnvPath)); env != "" {
		return env
	}
	return FileName
}

// LoadOptional reads the file at path if present.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Resolve loads the file at path (if present), applies defaults and validates.
func Resolve(path string) (*Resolved, error) {
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, err
	}

	channel := strings.TrimSpace(cfg.Bridge.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	if err := validateChannel(channel); err != nil {
		return nil, err
	}

	protocol, err := canonicalProtocol(cfg.Bridge.Protocol)
	if err != nil {
		return nil, err
	}

	sim, err := resolveSimulator(cfg.Simulator)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Path:      path,
		Channel:   channel,
		Protocol:  protocol,
		Verbose:   cfg.Log.Verbose,
		Simulator: sim,
	}, nil
}

func resolveSimulator(c SimulatorConfig) (Simulator, error) {
	sim := Simulator{
		ResultCode:       DefaultResultCode,
		DiscoverableCode: DefaultDiscoverableCode,
		Delay:            DefaultDelay,
		PlatformVersion:  strings.TrimSpace(c.PlatformVersion),
	}
	if c.Enabled != nil {
		sim.Enabled = *c.Enabled
	}
	if c.ResultCode != nil {
		sim.ResultCode = *c.ResultCode
	}
	if c.DiscoverableCode != nil {
		sim.DiscoverableCode = *c.DiscoverableCode
	}
	if sim.PlatformVersion == "" {
		sim.PlatformVersion = DefaultPlatformVersion
	}
	if delay := strings.TrimSpace(c.Delay); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return Simulator{}, fmt.Errorf("invalid simulator.delay %q: %w", c.Delay, err)
		}
		if d < 0 {
			return Simulator{}, fmt.Errorf("invalid simulator.delay %q: must not be negative", c.Delay)
		}
		sim.Delay = d
	}
	if sim.DiscoverableCode < 0 {
		return Simulator{}, fmt.Errorf("invalid simulator.discoverable_code %d: must not be negative", sim.DiscoverableCode)
	}
	return sim, nil
}

// canonicalProtocol accepts "1.2.0" or "v1.2.0" and rejects majors this
// build cannot speak.
func canonicalProtocol(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return DefaultProtocol, nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid bridge.protocol %q: not a semantic version", raw)
	}
	if major := semver.Major(v); major != SupportedMajor {
		return "", fmt.Errorf("unsupported bridge.protocol %q: major %s, want %s", raw, major, SupportedMajor)
	}
	return semver.Canonical(v), nil
}

func validateChannel(name string) error {
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("invalid bridge.channel %q: contains whitespace", name)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("invalid bridge.channel %q: leading or trailing slash", name)
	}
	return nil
}
