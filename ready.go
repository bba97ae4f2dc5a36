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
	"os"
	"sync"
	"sync/atomic"
)

// Flag is the set-once readiness latch shared between a worker and its
// supervisor.  A worker calls Set exactly once, when its initialization
// has finished; the supervisor polls Ready without blocking.  Once set,
// a Flag never reverts for the lifetime of the handle it belongs to.
//
// Within a single address space the Flag is just an atomic bool.  Across
// a process boundary the worker side is a pipe (see readyPipe below) and
// the supervisor side latches this Flag when the first byte arrives, so
// readers on either side of either boundary never observe a torn value.
type Flag struct {
	v atomic.Bool
}

// Set marks the flag ready.  Calling it again is a harmless no-op.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Ready reports whether Set has been called.
func (f *Flag) Ready() bool {
	return f.v.Load()
}

// readyPipe is the worker-process side of a cross-process Flag.  The
// write end is inherited by the child as a well-known file descriptor;
// writing a single byte is atomic, so the parent side cannot observe a
// partial update.
type readyPipe struct {
	w    *os.File
	once sync.Once
}

func (p *readyPipe) Set() {
	p.once.Do(func() {
		p.w.Write([]byte{1})
	})
}

// drainReady latches f as soon as one byte arrives on r, then discards
// the pipe.  It returns when the pipe is closed on the far side or the
// byte has been consumed.
func drainReady(r *os.File, f *Flag) {
	var b [1]byte
	if _, e := io.ReadFull(r, b[:]); e == nil {
		f.Set()
	}
	r.Close()
}
