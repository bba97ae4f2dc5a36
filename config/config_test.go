// Copyright 2026 The Shepherd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name = "demo"
control = "127.0.0.1:8321"
max_restarts = 7
single_process_fallback = true
sigusr2_hook = "dump"

[logging]
level = "debug"
format = "json"

[[interface]]
name = "http"
listen = ":8000"
unix_socket = "/tmp/demo-http.sock"
processes = 2
target = "http"
start_timeout = 1.5

[[interface]]
target = "admin"
listen = ":8001"

[[job]]
target = "sweeper"
wait_ready = true
timeout = 0.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, "127.0.0.1:8321", cfg.Control)
	assert.Equal(t, 7, cfg.MaxRestarts)
	assert.True(t, cfg.SingleProcessFallback)
	assert.Equal(t, "dump", cfg.SigUSR2Hook)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.Len(t, cfg.Interfaces, 2)
	http := cfg.Interfaces[0]
	assert.Equal(t, "http", http.Name)
	assert.Equal(t, ":8000", http.Listen)
	assert.Equal(t, "/tmp/demo-http.sock", http.UnixSocket)
	assert.Equal(t, 2, http.Processes)
	assert.Equal(t, 1500*time.Millisecond, http.StartTimeout())

	// Interface and job names default to their targets.
	assert.Equal(t, "admin", cfg.Interfaces[1].Name)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, "sweeper", cfg.Jobs[0].Name)
	assert.True(t, cfg.Jobs[0].WaitReady)
	assert.Equal(t, 500*time.Millisecond, cfg.Jobs[0].Timeout())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[[interface]]
target = "http"
listen = ":8000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxRestarts, cfg.MaxRestarts)
	assert.Equal(t, filepath.Base(os.Args[0]), cfg.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.SingleProcessFallback)
	assert.Empty(t, cfg.Control)
}

func TestLoadExplicitZeroRestarts(t *testing.T) {
	path := writeConfig(t, `max_restarts = 0`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxRestarts)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `name = "from-env"`)
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Name)
}

func TestLoadMissing(t *testing.T) {
	t.Setenv(EnvConfig, "")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoConfig)

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestParseHost(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
		ok   bool
	}{
		{"localhost:4444", "localhost", 4444, true},
		{":4444", "", 4444, true},
		{"4444", "", 4444, true},
		{"10.0.0.1:80", "10.0.0.1", 80, true},
		{"[::1]:8080", "::1", 8080, true},
		{"[fe80::1%eth0]:443", "fe80::1%eth0", 443, true},
		{"localhost:0", "", 0, false},
		{"localhost:65536", "", 0, false},
		{"localhost:http", "", 0, false},
		{"", "", 0, false},
	}
	for _, c := range cases {
		host, port, err := ParseHost(c.in)
		if !c.ok {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.host, host, c.in)
		assert.Equal(t, c.port, port, c.in)
	}
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	require.NoError(t, ConfigureLogging(Logging{Level: "warn", Format: "json"}))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	assert.Error(t, ConfigureLogging(Logging{Level: "chatty", Format: "text"}))
	assert.Error(t, ConfigureLogging(Logging{Level: "info", Format: "xml"}))
}

func TestItems(t *testing.T) {
	cfg := &Config{
		Name:        "demo",
		MaxRestarts: 3,
		Logging:     Logging{Level: "info", Format: "text"},
		Interfaces:  []Interface{{Name: "http", Listen: ":8000", Processes: 2, Target: "http"}},
		Jobs:        []Job{{Name: "sweep", Target: "sweep"}},
	}
	items := cfg.Items()

	got := map[string]string{}
	for _, kv := range items {
		got[kv[0]] = kv[1]
	}
	assert.Equal(t, "demo", got["name"])
	assert.Equal(t, "3", got["max_restarts"])
	assert.Equal(t, ":8000", got["interface.http.listen"])
	assert.Equal(t, "2", got["interface.http.processes"])
	assert.Equal(t, "sweep", got["job.sweep.target"])
}
