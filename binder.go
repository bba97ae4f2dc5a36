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

package shepherd

import (
	"fmt"
	"log"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/shepherd-run/shepherd/config"
)

// BuildWorkers resolves the configured interfaces and background jobs
// into Workers bound to strat.  Each interface's sockets are bound
// exactly once, here, and shared by all of that interface's workers; a
// non-positive process count means one worker per CPU core, or a single
// worker when the configuration asks for the single-process fallback.
//
// An interface that listens on neither TCP nor a unix socket fails with
// ErrBadInterface before any worker is created.  extraEnv is handed to
// process workers verbatim.
func BuildWorkers(cfg *config.Config, strat Strategy, logger *log.Logger, extraEnv []string) ([]*Worker, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	var workers []*Worker

	for _, iface := range cfg.Interfaces {
		if iface.Listen == "" && iface.UnixSocket == "" {
			return nil, fmt.Errorf("interface %q: %w", iface.Name, ErrBadInterface)
		}
		count := iface.Processes
		if count <= 0 {
			if cfg.SingleProcessFallback {
				count = 1
			} else {
				count = runtime.NumCPU()
			}
		}

		var ls []net.Listener
		var listenOn []string
		if iface.Listen != "" {
			host, port, e := config.ParseHost(iface.Listen)
			if e != nil {
				return nil, fmt.Errorf("interface %q: %w", iface.Name, e)
			}
			l, e := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if e != nil {
				return nil, fmt.Errorf("interface %q: %w", iface.Name, e)
			}
			ls = append(ls, l)
			listenOn = append(listenOn, l.Addr().String())
		}
		if iface.UnixSocket != "" {
			// A stale socket from a previous unclean exit blocks
			// the bind; clear it first.
			os.Remove(iface.UnixSocket)
			l, e := net.Listen("unix", iface.UnixSocket)
			if e != nil {
				return nil, fmt.Errorf("interface %q: %w", iface.Name, e)
			}
			ls = append(ls, l)
			listenOn = append(listenOn, iface.UnixSocket)
		}

		logger.Printf("Init %d worker(s) for interface '%s' (%s)",
			count, iface.Name, strings.Join(listenOn, ", "))

		for i := 0; i < count; i++ {
			w := NewWorker(iface.Name, strat, Spec{
				Target:    iface.Target,
				Listeners: ls,
				ExtraEnv:  extraEnv,
			})
			w.SetStartPolicy(true, iface.StartTimeout())
			workers = append(workers, w)
		}
	}

	for _, job := range cfg.Jobs {
		logger.Printf("Init background job '%s'", job.Name)
		w := NewWorker(job.Name, strat, Spec{
			Target:   job.Target,
			ExtraEnv: extraEnv,
		})
		w.SetStartPolicy(job.WaitReady, job.Timeout())
		workers = append(workers, w)
	}

	return workers, nil
}
