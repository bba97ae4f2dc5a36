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
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	s := strings.Trim(string(p), "\n")
	tl.t.Log(s)
	return len(p), nil
}

// SetTestLogger routes supervisor output into the test log.
func SetTestLogger(t *testing.T, s *Supervisor) {
	s.SetLogger(log.New(&testLog{t: t}, "", 0))
}

// stubHandle is a handle whose liveness and exit code the test
// controls; stubStrategy mints them.
type stubHandle struct {
	id    int
	runID string

	mx    sync.Mutex
	alive bool
	code  int
	flag  Flag
}

func (h *stubHandle) ID() int {
	return h.id
}

func (h *stubHandle) RunID() string {
	return h.runID
}

func (h *stubHandle) Alive() bool {
	h.mx.Lock()
	defer h.mx.Unlock()
	return h.alive
}

func (h *stubHandle) ExitCode() int {
	h.mx.Lock()
	defer h.mx.Unlock()
	return h.code
}

func (h *stubHandle) Ready() bool {
	return h.flag.Ready()
}

func (h *stubHandle) Stop() {
	h.mx.Lock()
	h.alive = false
	h.code = 0
	h.mx.Unlock()
}

// exit simulates the handle dying on its own with the given code.
func (h *stubHandle) exit(code int) {
	h.mx.Lock()
	h.alive = false
	h.code = code
	h.mx.Unlock()
}

// stubStrategy spawns stubHandles.  With stay unset every handle is
// born dead carrying code, which models a worker that always exits
// immediately; with stay set handles live until stopped.
type stubStrategy struct {
	mx      sync.Mutex
	stay    bool
	ready   bool
	code    int
	spawned []*stubHandle
}

func (s *stubStrategy) Spawn(spec Spec) (handle, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	h := &stubHandle{
		id:    len(s.spawned) + 1,
		runID: xid.New().String(),
		alive: s.stay,
		code:  s.code,
	}
	if s.ready {
		h.flag.Set()
	}
	s.spawned = append(s.spawned, h)
	return h, nil
}

func (s *stubStrategy) count() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.spawned)
}

func (s *stubStrategy) last() *stubHandle {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(s.spawned) == 0 {
		return nil
	}
	return s.spawned[len(s.spawned)-1]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// logText flattens the supervisor's ring buffer for substring checks.
func logText(s *Supervisor) string {
	recs, _ := s.GetLog(0)
	var b strings.Builder
	for _, r := range recs {
		b.WriteString(r.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// quietLogrus returns a logger that swallows its output, for workers
// whose chatter would drown the test log.
func quietLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
