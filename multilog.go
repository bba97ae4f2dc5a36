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
	"log"
	"strings"
	"sync"
)

// MultiLogger is the supervisor's log tee: every engine message goes
// into the retained Log ring the REST API serves, and to one swappable
// output destination (stderr by default, a test writer under test).
// Both destinations keep their own prefixes and flags.
type MultiLogger struct {
	log  *log.Logger
	lock sync.Mutex
	ring *log.Logger
	out  *log.Logger
}

// NewMultiLogger returns a MultiLogger writing to ring and out.  The
// ring destination is fixed for the MultiLogger's lifetime; out may be
// swapped later with SetOutput and may be nil for none.
func NewMultiLogger(ring, out *log.Logger) *MultiLogger {
	m := &MultiLogger{ring: ring, out: out}
	m.log = log.New(m, "", 0)
	return m
}

// Write implements io.Writer with the line-at-a-time semantics that
// log.Logger delivers, handing each line to both destinations.
func (l *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	l.lock.Lock()
	for _, line := range lines {
		l.ring.Println(line)
		if l.out != nil {
			l.out.Println(line)
		}
	}
	l.lock.Unlock()
	return len(b), nil
}

// SetOutput replaces the output destination; the ring keeps receiving.
func (l *MultiLogger) SetOutput(out *log.Logger) {
	l.lock.Lock()
	l.out = out
	l.lock.Unlock()
}

// Logger returns the single logger callers should write through.
func (l *MultiLogger) Logger() *log.Logger {
	return l.log
}
