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
	"os"
	"sync"
	"time"
)

// readyPoll is the interval at which a synchronous start polls the
// readiness flag.
const readyPoll = 100 * time.Millisecond

// Worker is the supervisor's handle on one unit of concurrent work: a
// name, the spec its strategy spawns from, and the current execution
// handle.  Names need not be unique; every worker of one interface
// shares the interface name.
//
// A Worker can be started again after its handle exits.  Each start
// spawns a brand-new handle from the same spec; the old handle is
// discarded, never resurrected.
type Worker struct {
	name     string
	strategy Strategy
	spec     Spec

	// Start policy used for the first, synchronous start.
	waitReady    bool
	startTimeout time.Duration

	mx     sync.Mutex
	h      handle
	starts int
	stamp  time.Time
	notify func()
}

// NewWorker binds a spec to a strategy under the given name.  By
// default the first start waits indefinitely for readiness; adjust with
// SetStartPolicy.
func NewWorker(name string, strategy Strategy, spec Spec) *Worker {
	spec.Name = name
	return &Worker{
		name:      name,
		strategy:  strategy,
		spec:      spec,
		waitReady: true,
	}
}

// SetStartPolicy configures whether the initial start blocks until the
// worker reports ready, and for how long.  A zero timeout with
// waitReady set means wait forever.
func (w *Worker) SetStartPolicy(waitReady bool, timeout time.Duration) {
	w.waitReady = waitReady
	w.startTimeout = timeout
}

// WaitReady reports the configured initial start policy.
func (w *Worker) WaitReady() (bool, time.Duration) {
	return w.waitReady, w.startTimeout
}

// Name returns the worker's label.
func (w *Worker) Name() string {
	return w.name
}

// Start spawns a fresh execution handle.  Starting a worker that is
// still alive fails with ErrAlreadyStarted and leaves the existing
// handle untouched.  When waitReady is set, Start blocks polling the
// readiness flag; with a positive timeout it fails with ErrStartTimeout
// once that much time has passed without the flag coming up, and with a
// zero timeout it waits indefinitely.
func (w *Worker) Start(waitReady bool, timeout time.Duration) error {
	w.mx.Lock()
	if w.h != nil && w.h.Alive() {
		w.mx.Unlock()
		return fmt.Errorf("worker %q: %w", w.name, ErrAlreadyStarted)
	}
	h, e := w.strategy.Spawn(w.spec)
	if e != nil {
		w.mx.Unlock()
		return fmt.Errorf("worker %q: %w", w.name, e)
	}
	w.h = h
	w.starts++
	w.stamp = time.Now()
	notify := w.notify
	w.mx.Unlock()

	if notify != nil {
		notify()
	}
	if !waitReady {
		return nil
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if h.Ready() {
			return nil
		}
		if !h.Alive() {
			// The flag may have come up just before the exit.
			if h.Ready() {
				return nil
			}
			return fmt.Errorf("worker %q: %w", w.name, ErrEarlyExit)
		}
		if timeout > 0 && time.Now().After(deadline) {
			return fmt.Errorf("worker %q: %w", w.name, ErrStartTimeout)
		}
		time.Sleep(readyPoll)
	}
}

// HasStarted reports whether a handle has ever been spawned,
// independent of current liveness.
func (w *Worker) HasStarted() bool {
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.h != nil
}

// Alive reports whether the current handle exists and has not exited.
func (w *Worker) Alive() bool {
	w.mx.Lock()
	h := w.h
	w.mx.Unlock()
	return h != nil && h.Alive()
}

// Ready reports the current handle's readiness flag.
func (w *Worker) Ready() bool {
	w.mx.Lock()
	h := w.h
	w.mx.Unlock()
	return h != nil && h.Ready()
}

// ExitCode returns the classification of the last exit: 0 clean, >0 an
// application error, <0 the negated signal number.  It fails with
// ErrNotStarted before the first start and with ErrStillRunning while
// the handle is alive.
func (w *Worker) ExitCode() (int, error) {
	w.mx.Lock()
	h := w.h
	w.mx.Unlock()
	if h == nil {
		return 0, fmt.Errorf("worker %q: %w", w.name, ErrNotStarted)
	}
	if h.Alive() {
		return 0, fmt.Errorf("worker %q: %w", w.name, ErrStillRunning)
	}
	return h.ExitCode(), nil
}

// ID returns the pid (process strategy) or synthetic id (thread
// strategy) of the current handle, or 0 if never started.  The id of an
// exited handle remains readable until the next start.
func (w *Worker) ID() int {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.h == nil {
		return 0
	}
	return w.h.ID()
}

// RunID returns the unique id minted for the current handle, or "".
func (w *Worker) RunID() string {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.h == nil {
		return ""
	}
	return w.h.RunID()
}

// Starts returns how many handles have been spawned for this worker.
func (w *Worker) Starts() int {
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.starts
}

// Stamp returns the time of the last start.
func (w *Worker) Stamp() time.Time {
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.stamp
}

// Stop requests graceful termination of the current handle if it is
// alive, and is a no-op otherwise.  Termination is cooperative; Stop
// does not wait for the worker to oblige.
func (w *Worker) Stop() {
	w.mx.Lock()
	h := w.h
	w.mx.Unlock()
	if h != nil && h.Alive() {
		h.Stop()
	}
}

// forward delivers sig to the handle if the strategy supports it
// (process workers only).
func (w *Worker) forward(sig os.Signal) {
	w.mx.Lock()
	h := w.h
	w.mx.Unlock()
	if s, ok := h.(signaler); ok && h.Alive() {
		s.Signal(sig)
	}
}

func (w *Worker) setNotify(fn func()) {
	w.mx.Lock()
	w.notify = fn
	w.mx.Unlock()
}
