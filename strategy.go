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
	"net"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// WorkerFunc is the body of a worker.  It receives its environment, must
// call env.Ready once initialization is complete, and should return when
// env.Quit is closed.  A nil return is a clean exit; a non-nil return is
// an application error (process workers exit 1, thread workers report
// exit code 1).
type WorkerFunc func(env *Env) error

// Env is everything a running worker gets from the runtime: its
// configured name, the listeners bound for it by the master, a logger,
// the readiness latch, and the stop request.
type Env struct {
	Name      string
	Listeners []net.Listener
	Logger    *logrus.Entry

	ready    interface{ Set() }
	quit     chan struct{}
	quitOnce sync.Once
}

// Ready marks the worker's initialization complete.  The supervisor's
// synchronous start wait unblocks when this is called.
func (e *Env) Ready() {
	e.ready.Set()
}

// Quit returns a channel that is closed when the worker must stop,
// either because the master requested it or, for process workers,
// because the watchdog noticed the master is gone.
func (e *Env) Quit() <-chan struct{} {
	return e.quit
}

func (e *Env) requestStop() {
	e.quitOnce.Do(func() { close(e.quit) })
}

// Spec describes one spawnable worker: the registered target function,
// the label used in logs, and the listeners the worker serves on.
// A Spec is reused verbatim for every restart; each Spawn produces a
// brand-new handle.
type Spec struct {
	Name      string
	Target    string
	Listeners []net.Listener

	// ExtraEnv is appended to the child environment by the process
	// strategy; the thread strategy ignores it.
	ExtraEnv []string
}

// handle is one live execution context produced by a Strategy.  Handles
// are single-use: once exited they are discarded, never restarted.
type handle interface {
	// ID is the pid of a process worker or a synthetic id for a
	// thread worker.  It remains valid after exit.
	ID() int

	// RunID is a unique id minted for this spawn, for log and API
	// correlation across restarts of the same name.
	RunID() string

	// Alive reports whether the underlying context is still running.
	Alive() bool

	// ExitCode is only meaningful after Alive has become false:
	// 0 clean, >0 application error, <0 the negated signal number.
	ExitCode() int

	// Ready reports the worker's readiness flag.
	Ready() bool

	// Stop requests cooperative termination.  It does not wait.
	Stop()
}

// signaler is implemented by handles that can receive forwarded OS
// signals (process workers only).
type signaler interface {
	Signal(sig os.Signal) error
}

// Strategy turns a Spec into a running handle.  The set of strategies
// is closed: NewProcessStrategy and NewThreadStrategy are the only two,
// chosen once at configuration time.
type Strategy interface {
	Spawn(spec Spec) (handle, error)
}

var (
	targetsMx sync.Mutex
	targets   = map[string]WorkerFunc{}
)

// Register makes fn available under the given target name.  Process
// workers resolve targets in the re-executed child, so registration
// must happen in package scope or early in main, before WorkerMain.
// Registering the same name twice keeps the last function.
func Register(target string, fn WorkerFunc) {
	targetsMx.Lock()
	targets[target] = fn
	targetsMx.Unlock()
}

func lookupTarget(target string) (WorkerFunc, bool) {
	targetsMx.Lock()
	fn, ok := targets[target]
	targetsMx.Unlock()
	return fn, ok
}
