package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/radiobridge/cmd/radiobridge/internal/config"
)

func TestSimulateActivateGranted(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "activate", "--result-code=-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "attached session-1 on radiobridge")
	assert.Contains(t, stdout, "granted: true")
}

func TestSimulateActivateDenied(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "activate", "--result-code", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "granted: false")
}

func TestSimulateActivateAlreadyEnabled(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "activate", "--enabled", "--result-code", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "granted: true")
}

func TestSimulateDiscoverable(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "discoverable", "--result-code", "120")
	require.NoError(t, err)
	assert.Contains(t, stdout, "discoverable: 120s")

	stdout, _, err = executeCLI(t, "", "simulate", "discoverable", "--result-code", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "discoverable: refused")
}

func TestSimulateQueryAndVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "query", "--enabled")
	require.NoError(t, err)
	assert.Contains(t, stdout, "enabled: true")

	stdout, _, err = executeCLI(t, "", "simulate", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "platform: "+config.DefaultPlatformVersion)
}

func TestSimulateBusy(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "activate", "--busy", "--result-code=-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "activity open: request code 1337")
	assert.Contains(t, stdout, "second request rejected: busy")
	assert.Contains(t, stdout, "granted: true")
}

func TestSimulateReattachMidFlight(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "simulate", "discoverable", "--reattach", "--result-code", "300")
	require.NoError(t, err)
	assert.Contains(t, stdout, "activity open: request code 2137")
	assert.Contains(t, stdout, "reattached as session-2")
	assert.Contains(t, stdout, "discoverable: 300s")
}

func TestSimulateRejectsStagedQuery(t *testing.T) {
	_, _, err := executeCLI(t, "", "simulate", "query", "--busy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply to activate and discoverable")

	_, _, err = executeCLI(t, "", "simulate", "activate", "--reattach", "--enabled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already enabled")
}

func TestSimulateUnknownAction(t *testing.T) {
	_, _, err := executeCLI(t, "", "simulate", "pair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument \"pair\"")
}

func TestSimulateUsesConfigFile(t *testing.T) {
	path := writeConfigFixture(t, `
bridge:
  channel: obd2_plugin
simulator:
  result_code: 0
  delay: 1ms
`)
	stdout, _, err := executeCLI(t, "", "--config", path, "simulate", "activate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "attached session-1 on obd2_plugin")
	assert.Contains(t, stdout, "granted: false")
}

func TestConfigFromEnvironment(t *testing.T) {
	path := writeConfigFixture(t, "log:\n  verbose: true\nsimulator:\n  delay: 3s\n")

	stdout, _, err := executeCLI(t, path, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# "+path)

	var printed config.Resolved
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &printed))
	assert.Equal(t, config.DefaultChannel, printed.Channel)
	assert.Equal(t, config.DefaultProtocol, printed.Protocol)
	assert.True(t, printed.Verbose)
	assert.Equal(t, "3s", printed.Simulator.Delay.String())
}

func TestConfigRejectsInvalidProtocol(t *testing.T) {
	path := writeConfigFixture(t, "bridge:\n  protocol: v2.1.0\n")

	_, _, err := executeCLI(t, "", "--config", path, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bridge.protocol")
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "radiobridge "+Version)
	assert.Contains(t, stdout, "(development build)")
	assert.Contains(t, stdout, "protocol v1.0.0 (major v1)")
}

func executeCLI(t *testing.T, configEnv string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, configEnv)
	t.Chdir(t.TempDir())

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfigFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
