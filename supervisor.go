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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"
)

// pollInterval is the supervisor's tick: how often it sweeps the worker
// list for exits.  Shutdown latency is bounded by one tick.
const pollInterval = 250 * time.Millisecond

// Supervisor owns an ordered collection of Workers and drives their
// whole lifecycle: the initial synchronous bring-up, exit detection and
// classification, restarts bounded by a shared budget, and shutdown.
// Construct one per run; there is deliberately no global state.
//
// The restart budget counts error and signal exits across all workers
// collectively.  -1 means unlimited; once a failing exit is observed
// with the budget at zero the supervisor gives up, shuts everything
// down, and Run returns ErrTooManyRestarts.
type Supervisor struct {
	name        string
	workers     []*Worker
	maxRestarts int
	interval    time.Duration

	log  *Log
	mlog *MultiLogger

	serial     int64
	listSerial int64
	listStamp  time.Time
	createTime time.Time
	updateTime time.Time
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex

	sigs     chan os.Signal
	stop     chan struct{}
	stopOnce sync.Once
	hooks    map[os.Signal][]func()
}

// SupervisorInfo is a consistent snapshot of top-level state, served by
// the management API.
type SupervisorInfo struct {
	Name        string
	Serial      int64
	Workers     int
	MaxRestarts int
	CreateTime  time.Time
	UpdateTime  time.Time
}

// NewSupervisor returns an empty supervisor with an unlimited restart
// budget, logging to stderr and into its retained Log ring.
func NewSupervisor(name string) *Supervisor {
	if name == "" {
		name = "shepherd"
	}
	s := &Supervisor{
		name:        name,
		maxRestarts: -1,
		interval:    pollInterval,
		// Serial numbers seed from the clock so that clients which
		// cached state from a previous master see an invalidation.
		serial:     time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
		sigs:       make(chan os.Signal, 4),
		stop:       make(chan struct{}),
		hooks:      make(map[os.Signal][]func()),
		createTime: time.Now(),
	}
	s.updateTime = s.createTime
	s.log = NewLog()
	s.mlog = NewMultiLogger(
		log.New(s.log, "", 0),
		log.New(os.Stderr, "", log.LstdFlags))
	return s
}

// Name returns the supervisor's name, used in process-level log
// messages to distinguish instances.
func (s *Supervisor) Name() string {
	return s.name
}

// Logger returns the logger that fans out to every destination,
// including the retained ring; strategies and workers should write
// through it.
func (s *Supervisor) Logger() *log.Logger {
	return s.mlog.Logger()
}

// SetLogger replaces the default stderr destination; the retained ring
// keeps receiving regardless.
func (s *Supervisor) SetLogger(l *log.Logger) {
	s.mlog.SetOutput(l)
}

// SetMaxRestarts sets the shared restart budget; -1 means unlimited.
func (s *Supervisor) SetMaxRestarts(n int) {
	s.mx.Lock()
	s.maxRestarts = n
	s.mx.Unlock()
}

// RestartsLeft returns the remaining budget, -1 for unlimited.
func (s *Supervisor) RestartsLeft() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.maxRestarts
}

// SetInterval overrides the sweep tick; tests tighten it.
func (s *Supervisor) SetInterval(d time.Duration) {
	s.mx.Lock()
	s.interval = d
	s.mx.Unlock()
}

func (s *Supervisor) logf(format string, v ...interface{}) {
	s.mlog.Logger().Printf(format, v...)
}

// The wake-up machinery: every state change bumps a serial number and
// broadcasts to any long-poll watchers.  Call with the lock held.
func (s *Supervisor) bumpSerial() int64 {
	s.updateTime = time.Now()
	s.serial++
	rv := s.serial
	for cv := range s.cvs {
		cv.Broadcast()
	}
	return rv
}

func (s *Supervisor) watchSerial(old int64, src *int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&s.mx)
	var timer *time.Timer
	var rv int64

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.mx.Lock()
			expired = true
			cv.Broadcast()
			s.mx.Unlock()
		})
	} else {
		expired = true
	}

	s.mx.Lock()
	s.cvs[cv] = true
	for {
		rv = *src
		if rv != old || expired {
			break
		}
		cv.Wait()
	}
	delete(s.cvs, cv)
	s.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// WatchSerial blocks until the global serial number changes from old,
// or expire passes.  It returns the current serial either way.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	return s.watchSerial(old, &s.serial, expire)
}

// WatchWorkers is WatchSerial for the worker list.
func (s *Supervisor) WatchWorkers(old int64, expire time.Duration) int64 {
	return s.watchSerial(old, &s.listSerial, expire)
}

// GetInfo returns a consistent snapshot of the supervisor.
func (s *Supervisor) GetInfo() *SupervisorInfo {
	s.mx.Lock()
	defer s.mx.Unlock()
	return &SupervisorInfo{
		Name:        s.name,
		Serial:      s.serial,
		Workers:     len(s.workers),
		MaxRestarts: s.maxRestarts,
		CreateTime:  s.createTime,
		UpdateTime:  s.updateTime,
	}
}

// GetLog returns retained log records newer than lastid.
func (s *Supervisor) GetLog(lastid int64) ([]LogRecord, int64) {
	return s.log.GetRecords(lastid)
}

// WatchLog blocks until the log grows past old or expire passes.
func (s *Supervisor) WatchLog(old int64, expire time.Duration) int64 {
	return s.log.Watch(old, expire)
}

// AddWorker appends w to the supervised collection.  Order is
// preserved; the initial bring-up and every sweep enumerate workers in
// addition order.
func (s *Supervisor) AddWorker(w *Worker) {
	w.setNotify(func() {
		s.mx.Lock()
		s.bumpSerial()
		s.mx.Unlock()
	})
	s.mx.Lock()
	s.workers = append(s.workers, w)
	s.listSerial = s.bumpSerial()
	s.listStamp = time.Now()
	s.mx.Unlock()
}

// Workers returns the workers in addition order, with the list serial
// and its timestamp.
func (s *Supervisor) Workers() ([]*Worker, int64, time.Time) {
	s.mx.Lock()
	defer s.mx.Unlock()
	rv := make([]*Worker, len(s.workers))
	copy(rv, s.workers)
	return rv, s.listSerial, s.listStamp
}

// OnSignal registers fn to run on the supervisor's goroutine whenever
// sig is delivered to the master.  Hooks run after the signal has been
// forwarded to process workers.
func (s *Supervisor) OnSignal(sig os.Signal, fn func()) {
	s.mx.Lock()
	s.hooks[sig] = append(s.hooks[sig], fn)
	s.mx.Unlock()
}

// NotifySignals subscribes the supervisor to the master-level signals:
// interrupt and terminate for shutdown, the two user signals for
// forwarding.  Call once before Run.
func (s *Supervisor) NotifySignals() {
	signal.Notify(s.sigs, sigInt, sigTerm, sigUsr1, sigUsr2)
}

// Stop requests orderly shutdown of the whole supervisor from another
// goroutine.  Run observes it within one tick.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// StartAll performs the initial synchronous bring-up, in order.  Each
// worker's own start policy decides whether to wait for readiness and
// for how long.  The first failure aborts the sequence: workers later
// in the order are left unstarted and the error surfaces to the
// caller.  Partial startup is a configuration or environment problem,
// not a state to keep running in.
func (s *Supervisor) StartAll() error {
	workers, _, _ := s.Workers()
	for _, w := range workers {
		if w.HasStarted() {
			continue
		}
		waitReady, timeout := w.WaitReady()
		s.logf("Starting worker '%s'", w.Name())
		if e := w.Start(waitReady, timeout); e != nil {
			s.logf("Failed to start worker '%s': %v", w.Name(), e)
			return e
		}
		s.logf("Worker '%s' has been started with pid %d", w.Name(), w.ID())
	}
	return nil
}

// Run brings every worker up via StartAll and then supervises until
// the context is canceled, Stop is called, or a termination signal
// arrives -- in which case it stops all workers and returns nil -- or
// until the restart budget runs dry, in which case it shuts down and
// returns ErrTooManyRestarts.
func (s *Supervisor) Run(ctx context.Context) error {
	if e := s.StartAll(); e != nil {
		s.Shutdown()
		return e
	}

	s.mx.Lock()
	interval := s.interval
	s.mx.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil
		case <-s.stop:
			s.Shutdown()
			return nil
		case sig := <-s.sigs:
			if sig == sigInt || sig == sigTerm {
				s.logf("*** %s master: caught %v, shutting down ***", s.name, sig)
				s.Shutdown()
				return nil
			}
			s.deliverSignal(sig)
		case <-ticker.C:
			if e := s.sweep(); e != nil {
				s.Shutdown()
				return e
			}
		}
	}
}

// sweep is one supervision tick: find workers that are not alive,
// classify how they went down, and restart them subject to the shared
// budget.
func (s *Supervisor) sweep() error {
	workers, _, _ := s.Workers()
	for _, w := range workers {
		if w.Alive() {
			continue
		}
		if !w.HasStarted() {
			// Left over from an aborted bring-up or added at
			// runtime; no readiness wait on this path.
			if e := w.Start(false, 0); e != nil {
				s.logf("Failed to start worker '%s': %v", w.Name(), e)
				continue
			}
			s.logf("Worker '%s' has been started with pid %d", w.Name(), w.ID())
			continue
		}

		code, err := w.ExitCode()
		if err != nil {
			// Raced with a restart; pick it up next tick.
			continue
		}
		pid := w.ID()

		if code == 0 {
			s.logf("Worker '%s' with pid %d has stopped", w.Name(), pid)
		} else {
			if code > 0 {
				s.logf("Worker '%s' with pid %d died with exit code %d",
					w.Name(), pid, code)
			} else {
				s.logf("Worker '%s' with pid %d died due to %s",
					w.Name(), pid, signalName(-code))
			}
			s.mx.Lock()
			budget := s.maxRestarts
			if budget > 0 {
				s.maxRestarts--
			}
			s.mx.Unlock()
			if budget == 0 {
				s.logf("Too many child restarts")
				return fmt.Errorf("%s: %w", s.name, ErrTooManyRestarts)
			}
		}

		if e := w.Start(false, 0); e != nil {
			s.logf("Failed to restart worker '%s': %v", w.Name(), e)
			continue
		}
		s.logf("Worker '%s' has been started with pid %d", w.Name(), w.ID())
	}
	return nil
}

// deliverSignal forwards sig to every process worker and then runs the
// registered hooks, on the supervisor's own goroutine.
func (s *Supervisor) deliverSignal(sig os.Signal) {
	workers, _, _ := s.Workers()
	for _, w := range workers {
		w.forward(sig)
	}
	s.mx.Lock()
	fns := append([]func(){}, s.hooks[sig]...)
	s.mx.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Shutdown stops every worker, alive or not, and logs the fact.  It is
// safe to call more than once.
func (s *Supervisor) Shutdown() {
	workers, _, _ := s.Workers()
	for _, w := range workers {
		if w.HasStarted() {
			s.logf("Stopping worker '%s' with pid %d", w.Name(), w.ID())
		}
		w.Stop()
	}
	s.logf("*** %s shut down ***", s.name)
}
