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
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/xid"
)

// Environment markers used to hand a worker its assignment across the
// re-exec boundary.  Fd 3 in the child is the readiness pipe; fds 4 and
// up are the inherited listeners, in configuration order.
const (
	envWorkerTarget = "SHEPHERD_WORKER"
	envWorkerName   = "SHEPHERD_WORKER_NAME"
	envListeners    = "SHEPHERD_LISTENERS"

	readyFd     = 3
	listenersFd = 4
)

// ProcessStrategy runs each worker as a separate OS process, created by
// re-executing the current binary with the target name in the
// environment.  Listeners are inherited by file descriptor, so several
// workers of one interface share the same bound sockets.
type ProcessStrategy struct {
	logger   *log.Logger
	stopTime time.Duration
}

// NewProcessStrategy returns a ProcessStrategy that copies worker
// stdout/stderr into logger.  Workers that have not exited stopTime
// after a stop request are killed; a zero stopTime waits forever.
func NewProcessStrategy(logger *log.Logger) *ProcessStrategy {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &ProcessStrategy{
		logger:   logger,
		stopTime: 10 * time.Second,
	}
}

// SetStopTime adjusts the grace period between a stop request and a
// forced kill.
func (p *ProcessStrategy) SetStopTime(d time.Duration) {
	p.stopTime = d
}

// filer is satisfied by *net.TCPListener and *net.UnixListener; File
// dups the descriptor, so each spawn gets its own copy to inherit.
type filer interface {
	File() (*os.File, error)
}

func listenerFiles(ls []net.Listener) ([]*os.File, error) {
	files := make([]*os.File, 0, len(ls))
	for _, l := range ls {
		fl, ok := l.(filer)
		if !ok {
			closeFiles(files)
			return nil, fmt.Errorf("listener %T cannot be passed to a worker process", l)
		}
		f, e := fl.File()
		if e != nil {
			closeFiles(files)
			return nil, e
		}
		files = append(files, f)
	}
	return files, nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

type processHandle struct {
	name  string
	runID string
	cmd   *exec.Cmd
	pid   int
	flag  Flag

	logger *log.Logger

	mx       sync.Mutex
	code     int
	done     chan struct{}
	stopped  bool
	stopTime time.Duration
}

func (p *ProcessStrategy) Spawn(spec Spec) (handle, error) {
	if _, ok := lookupTarget(spec.Target); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, spec.Target)
	}

	exe, e := os.Executable()
	if e != nil {
		return nil, e
	}

	readyR, readyW, e := os.Pipe()
	if e != nil {
		return nil, e
	}

	files, e := listenerFiles(spec.Listeners)
	if e != nil {
		readyR.Close()
		readyW.Close()
		return nil, e
	}

	h := &processHandle{
		name:     spec.Name,
		runID:    xid.New().String(),
		logger:   p.logger,
		done:     make(chan struct{}),
		stopTime: p.stopTime,
	}

	cmd := &exec.Cmd{
		Path: exe,
		Args: []string{os.Args[0]},
		Env: append(append(os.Environ(),
			envWorkerTarget+"="+spec.Target,
			envWorkerName+"="+spec.Name,
			envListeners+"="+strconv.Itoa(len(spec.Listeners)),
		), spec.ExtraEnv...),
		ExtraFiles: append([]*os.File{readyW}, files...),
	}

	if stdout, e := cmd.StdoutPipe(); e != nil {
		h.logger.Printf("Failed to capture stdout: %v", e)
	} else {
		go h.doLog(stdout, spec.Name+"/stdout> ")
	}
	if stderr, e := cmd.StderrPipe(); e != nil {
		h.logger.Printf("Failed to capture stderr: %v", e)
	} else {
		go h.doLog(stderr, spec.Name+"/stderr> ")
	}

	if e := cmd.Start(); e != nil {
		readyR.Close()
		readyW.Close()
		closeFiles(files)
		return nil, e
	}

	// The child owns the inherited copies now.
	readyW.Close()
	closeFiles(files)

	h.cmd = cmd
	h.pid = cmd.Process.Pid

	go drainReady(readyR, &h.flag)
	go h.wait()

	return h, nil
}

func (h *processHandle) doLog(r io.ReadCloser, prefix string) {
	// Gather output in chunks of lines.
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			h.logger.Print(prefix, strings.Trim(line, "\n"))
		}
		if err != nil {
			return
		}
	}
}

func (h *processHandle) wait() {
	h.cmd.Wait()
	h.mx.Lock()
	h.code = waitCode(h.cmd.ProcessState)
	close(h.done)
	h.mx.Unlock()
}

// waitCode collapses a process exit into the classification the
// supervisor consumes: 0 clean, >0 the exit code, <0 the negated
// terminating signal.
func waitCode(ps *os.ProcessState) int {
	if ps == nil {
		return 0
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return -int(ws.Signal())
		}
		return ws.ExitStatus()
	}
	return ps.ExitCode()
}

func (h *processHandle) ID() int {
	return h.pid
}

func (h *processHandle) RunID() string {
	return h.runID
}

func (h *processHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *processHandle) ExitCode() int {
	select {
	case <-h.done:
		return h.code
	default:
		return 0
	}
}

func (h *processHandle) Ready() bool {
	return h.flag.Ready()
}

// Stop requests graceful termination with SIGTERM.  The worker is
// expected to notice and exit on its own; if it has not done so within
// the grace period it is killed outright.
func (h *processHandle) Stop() {
	h.mx.Lock()
	if h.stopped || !h.Alive() {
		h.mx.Unlock()
		return
	}
	h.stopped = true
	h.mx.Unlock()

	if e := h.cmd.Process.Signal(syscall.SIGTERM); e != nil {
		h.logger.Printf("Failed sending SIGTERM to %s[%d]: %v", h.name, h.pid, e)
	}
	if h.stopTime > 0 {
		timer := time.AfterFunc(h.stopTime, func() {
			h.logger.Printf("Graceful shutdown of %s[%d] timed out", h.name, h.pid)
			h.cmd.Process.Kill()
		})
		go func() {
			<-h.done
			timer.Stop()
		}()
	}
}

// Signal forwards sig to the worker process; it implements signaler.
func (h *processHandle) Signal(sig os.Signal) error {
	if !h.Alive() {
		return nil
	}
	return h.cmd.Process.Signal(sig)
}
