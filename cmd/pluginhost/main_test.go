// main_test.go: End-to-end tests of the pluginhost commands
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	pluginhost "github.com/agilira/go-pluginhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig writes a host config rooted in a temporary directory.
func writeTestConfig(t *testing.T) (string, pluginhost.HostConfig) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pluginhost.yaml")
	content := fmt.Sprintf(`units_dir: %q
load_order_file: %q
settings_file: %q
changelog_db: %q
log_level: error
`, filepath.Join(dir, "units"), filepath.Join(dir, "load_order.yaml"),
		filepath.Join(dir, "settings.yaml"), filepath.Join(dir, "data", "changelog.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	config, err := pluginhost.LoadHostConfig(path)
	require.NoError(t, err)
	return path, config
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitWritesDemoLayout(t *testing.T) {
	configPath, config := writeTestConfig(t)

	_, err := execute(t, "--config", configPath, "init")
	require.NoError(t, err)

	active, err := pluginhost.ReadLoadOrderFile(config.LoadOrderFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"agilira.pluginhost", "demo.clock", "demo.weather", "demo.greeter"}, active)

	_, err = execute(t, "--config", configPath, "init")
	assert.Error(t, err, "an existing layout is kept without --force")
	_, err = execute(t, "--config", configPath, "init", "--force")
	assert.NoError(t, err)
}

func TestUnitsListAndToggle(t *testing.T) {
	configPath, config := writeTestConfig(t)
	_, err := execute(t, "--config", configPath, "init")
	require.NoError(t, err)

	_, err = execute(t, "--config", configPath, "units", "disable", "demo.greeter")
	require.NoError(t, err)
	out, err := execute(t, "--config", configPath, "units", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PACKAGE ID")
	assert.Regexp(t, `demo\.greeter\s+Greeter\s+2\.1\.0\s+greeter\s+-`, out)
	assert.Regexp(t, `demo\.weather\s+Weather\s+0\.3\.0\s+weather\s+3`, out)

	_, err = execute(t, "--config", configPath, "units", "enable", "demo.greeter")
	require.NoError(t, err)
	active, err := pluginhost.ReadLoadOrderFile(config.LoadOrderFile)
	require.NoError(t, err)
	assert.Equal(t, "demo.greeter", active[len(active)-1])
}

func TestUnitsExtensionsBootsTheHost(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	_, err := execute(t, "--config", configPath, "init")
	require.NoError(t, err)

	out, err := execute(t, "--config", configPath, "units", "extensions")
	require.NoError(t, err)
	assert.Contains(t, out, "demo.clock")
	assert.Contains(t, out, "demo.greeter")
	assert.Regexp(t, `demo\.weather\s+weather/Weather\s+demo\.weather\s+0\.3\.0\s+true\s+true\s+true`, out)
}

func TestRunCompletesTicks(t *testing.T) {
	configPath, config := writeTestConfig(t)
	_, err := execute(t, "--config", configPath, "init")
	require.NoError(t, err)

	_, err = execute(t, "--config", configPath, "run", "--ticks", "5", "--tick-interval", "1ms", "--changelog")
	require.NoError(t, err)

	_, err = os.Stat(config.ChangelogDB)
	assert.NoError(t, err, "the changelog database is created on boot")
}

func TestRunFailsWithoutLoadOrder(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := execute(t, "--config", configPath, "run", "--ticks", "1", "--tick-interval", "1ms")
	assert.Error(t, err)
}
