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

// Package config loads and validates the TOML application
// configuration: the listening interfaces with their worker counts,
// the background jobs, logging, and the master-level options.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfig names the environment variable consulted when no config
// path is given on the command line.
const EnvConfig = "SHEPHERD_CONFIG"

// DefaultMaxRestarts is the restart budget applied when the config
// file does not set one.
const DefaultMaxRestarts = 100

var ErrNoConfig = errors.New("no configuration file given (flag or " + EnvConfig + ")")

// Interface describes one listening endpoint: where it listens, how
// many worker processes serve it, and which registered target runs in
// each of them.
type Interface struct {
	Name       string  `toml:"name"`
	Listen     string  `toml:"listen"`      // "[host]:port", empty for none
	UnixSocket string  `toml:"unix_socket"` // path, empty for none
	Processes  int     `toml:"processes"`   // <=0 means one per CPU core
	Target     string  `toml:"target"`
	StartSecs  float64 `toml:"start_timeout"` // seconds, 0 means wait forever
}

// StartTimeout returns the readiness wait budget for this interface's
// workers.
func (i Interface) StartTimeout() time.Duration {
	return time.Duration(i.StartSecs * float64(time.Second))
}

// Job describes one background worker.
type Job struct {
	Name      string  `toml:"name"`
	Target    string  `toml:"target"`
	WaitReady bool    `toml:"wait_ready"`
	Secs      float64 `toml:"timeout"`
}

// Timeout returns the readiness wait budget for the job.
func (j Job) Timeout() time.Duration {
	return time.Duration(j.Secs * float64(time.Second))
}

// Logging holds the application logging options.
type Logging struct {
	Level  string `toml:"level"`  // logrus level name, default "info"
	Format string `toml:"format"` // "text" or "json"
}

// Config is the whole application configuration.
type Config struct {
	Name string `toml:"name"`

	// Control is the listen address of the management REST API;
	// empty disables it.
	Control string `toml:"control"`

	MaxRestarts int `toml:"max_restarts"`

	// SingleProcessFallback restricts interfaces with a
	// non-positive process count to a single worker instead of one
	// per CPU core.
	SingleProcessFallback bool `toml:"single_process_fallback"`

	// Names of hooks (see shepherd.RegisterHook) run when the master
	// receives SIGUSR1/SIGUSR2.
	SigUSR1Hook string `toml:"sigusr1_hook"`
	SigUSR2Hook string `toml:"sigusr2_hook"`

	Logging    Logging     `toml:"logging"`
	Interfaces []Interface `toml:"interface"`
	Jobs       []Job       `toml:"job"`
}

// Load reads the configuration from path, or from $SHEPHERD_CONFIG when
// path is empty, and applies defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return nil, ErrNoConfig
	}
	cfg := &Config{}
	md, e := toml.DecodeFile(path, cfg)
	if e != nil {
		return nil, fmt.Errorf("config %s: %w", path, e)
	}
	if !md.IsDefined("max_restarts") {
		cfg.MaxRestarts = DefaultMaxRestarts
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(os.Args[0])
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	for i := range cfg.Interfaces {
		if cfg.Interfaces[i].Name == "" {
			cfg.Interfaces[i].Name = cfg.Interfaces[i].Target
		}
	}
	for i := range cfg.Jobs {
		if cfg.Jobs[i].Name == "" {
			cfg.Jobs[i].Name = cfg.Jobs[i].Target
		}
	}
	return cfg, nil
}

// Items flattens the configuration into option-value pairs for display.
func (c *Config) Items() [][2]string {
	items := [][2]string{
		{"name", c.Name},
		{"control", c.Control},
		{"max_restarts", strconv.Itoa(c.MaxRestarts)},
		{"single_process_fallback", strconv.FormatBool(c.SingleProcessFallback)},
		{"sigusr1_hook", c.SigUSR1Hook},
		{"sigusr2_hook", c.SigUSR2Hook},
		{"logging.level", c.Logging.Level},
		{"logging.format", c.Logging.Format},
	}
	for _, i := range c.Interfaces {
		pfx := "interface." + i.Name + "."
		items = append(items,
			[2]string{pfx + "listen", i.Listen},
			[2]string{pfx + "unix_socket", i.UnixSocket},
			[2]string{pfx + "processes", strconv.Itoa(i.Processes)},
			[2]string{pfx + "target", i.Target},
			[2]string{pfx + "start_timeout", strconv.FormatFloat(i.StartSecs, 'f', -1, 64)},
		)
	}
	for _, j := range c.Jobs {
		pfx := "job." + j.Name + "."
		items = append(items,
			[2]string{pfx + "target", j.Target},
			[2]string{pfx + "wait_ready", strconv.FormatBool(j.WaitReady)},
			[2]string{pfx + "timeout", strconv.FormatFloat(j.Secs, 'f', -1, 64)},
		)
	}
	return items
}

// ParseHost splits "host:port", "[host]:port", ":port" or "port" into
// address and port, in the loose format the interface `listen` option
// accepts.  The returned host carries no brackets, so it can be handed
// straight to net.JoinHostPort.
func ParseHost(s string) (string, int, error) {
	host, portStr, e := net.SplitHostPort(s)
	if e != nil {
		// The bare-port form.
		host, portStr = "", s
	}
	port, e := strconv.Atoi(portStr)
	if e != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port number %q", portStr)
	}
	return host, port, nil
}
