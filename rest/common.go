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

// Package rest is the management API served by a running master: the
// supervisor's state, the worker list, and the retained log, with etag
// based conditional requests and long-polling so clients like
// shepherdtop can watch cheaply.
package rest

import (
	"time"
)

const mimeJson = "application/json; charset=UTF-8"

var ok struct{}

// SupervisorInfo mirrors shepherd.SupervisorInfo on the wire.
type SupervisorInfo struct {
	Name        string    `json:"name"`
	Workers     int       `json:"workers"`
	MaxRestarts int       `json:"maxRestarts"`
	CreateTime  time.Time `json:"ctime"`
	UpdateTime  time.Time `json:"mtime"`

	etag string
}

// WorkerInfo describes one worker.  Names are not unique (every worker
// of an interface shares its name), so workers are addressed by their
// position in the supervisor's ordered list.
type WorkerInfo struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Started   bool      `json:"started"`
	Alive     bool      `json:"alive"`
	Ready     bool      `json:"ready"`
	Pid       int       `json:"pid"`
	RunID     string    `json:"runId"`
	Starts    int       `json:"starts"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	TimeStamp time.Time `json:"tstamp"`
}

// LogRecord mirrors shepherd.LogRecord on the wire.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Error is the JSON error body.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
