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
	"strings"
	"sync"
	"time"
)

// MaxLogRecords caps the supervisor's in-memory log ring.
const MaxLogRecords = 1000

// LogRecord is one retained log line.  Ids increase monotonically and
// double as etags for the REST API's conditional requests.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a bounded in-memory ring of log records with change
// notification, kept by the Supervisor so that recent history is
// available over the management API without any file plumbing.
type Log struct {
	records []LogRecord
	next    int  // ring index of the next write
	wrapped bool // true once the ring has overwritten old entries
	id      int64
	cvs     map[*sync.Cond]bool
	mx      sync.Mutex
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{
		records: make([]LogRecord, MaxLogRecords),
		// Seed ids with the clock so a restarted master never hands
		// out an id a client has already cached.
		id:  time.Now().UnixNano(),
		cvs: make(map[*sync.Cond]bool),
	}
}

// Write implements io.Writer against the semantics log.Logger emits:
// whole lines, newline terminated.
func (l *Log) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	l.mx.Lock()
	for _, line := range lines {
		l.id++
		l.records[l.next] = LogRecord{Id: l.id, Time: time.Now(), Text: line}
		l.next++
		if l.next == len(l.records) {
			l.next = 0
			l.wrapped = true
		}
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.mx.Unlock()
	return len(b), nil
}

// GetRecords returns the retained records in order, plus the id of the
// newest one.  If last matches that id the log has not changed and nil
// is returned immediately, so callers can poll cheaply.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.id == last {
		return nil, last
	}
	var recs []LogRecord
	if l.wrapped {
		recs = make([]LogRecord, 0, len(l.records))
		recs = append(recs, l.records[l.next:]...)
	} else {
		recs = make([]LogRecord, 0, l.next)
	}
	recs = append(recs, l.records[:l.next]...)
	return recs, l.id
}

// Watch blocks until the newest record id differs from last, or until
// expire has passed; it returns the current newest id either way.  A
// zero expire makes it a plain poll.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.mx.Lock()
			expired = true
			cv.Broadcast()
			l.mx.Unlock()
		})
	} else {
		expired = true
	}

	l.mx.Lock()
	l.cvs[cv] = true
	for l.id == last && !expired {
		cv.Wait()
	}
	delete(l.cvs, cv)
	id := l.id
	l.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return id
}
