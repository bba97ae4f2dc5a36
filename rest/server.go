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

package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/shepherd-run/shepherd"
)

// Handler wraps a Supervisor, adding http.Handler functionality.
type Handler struct {
	s *shepherd.Supervisor
	r *mux.Router
}

// NewHandler returns the management API for s.
func NewHandler(s *shepherd.Supervisor) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r}
	r.HandleFunc("/", h.getInfo).Methods("GET")
	r.HandleFunc("/workers", h.listWorkers).Methods("GET")
	r.HandleFunc("/workers/{index}", h.getWorker).Methods("GET")
	r.HandleFunc("/workers/{index}/stop", h.stopWorker).Methods("POST")
	r.HandleFunc("/workers/{index}/restart", h.restartWorker).Methods("POST")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, etag string, v interface{}) {
	b, e := json.Marshal(v)
	if e != nil {
		h.internalError(w, e)
		return
	}
	w.Header().Set("Content-Type", mimeJson)
	if etag != "" {
		w.Header().Set("Etag", etag)
	}
	w.Write(b)
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	b, err := json.Marshal(e)
	if err != nil {
		h.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", mimeJson)
	w.WriteHeader(e.Code)
	w.Write(b)
}

// watchArg interprets the conditional request parameters: the etag the
// client last saw and how many seconds it is willing to hang waiting
// for a change.
func watchArg(r *http.Request) (int64, time.Duration) {
	var old int64
	if tag := r.Header.Get("If-None-Match"); tag != "" {
		old, _ = strconv.ParseInt(tag, 10, 64)
	}
	var wait time.Duration
	if secs, e := strconv.Atoi(r.URL.Query().Get("watch")); e == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	return old, wait
}

func (h *Handler) getInfo(w http.ResponseWriter, r *http.Request) {
	old, wait := watchArg(r)
	serial := h.s.WatchSerial(old, wait)
	if old != 0 && serial == old {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	i := h.s.GetInfo()
	info := &SupervisorInfo{
		Name:        i.Name,
		Workers:     i.Workers,
		MaxRestarts: i.MaxRestarts,
		CreateTime:  i.CreateTime,
		UpdateTime:  i.UpdateTime,
	}
	h.writeJson(w, strconv.FormatInt(serial, 10), info)
}

func workerInfo(index int, wk *shepherd.Worker) *WorkerInfo {
	info := &WorkerInfo{
		Index:     index,
		Name:      wk.Name(),
		Started:   wk.HasStarted(),
		Alive:     wk.Alive(),
		Ready:     wk.Ready(),
		Pid:       wk.ID(),
		RunID:     wk.RunID(),
		Starts:    wk.Starts(),
		TimeStamp: wk.Stamp(),
	}
	if code, e := wk.ExitCode(); e == nil {
		info.ExitCode = &code
	}
	return info
}

func (h *Handler) listWorkers(w http.ResponseWriter, r *http.Request) {
	old, wait := watchArg(r)
	serial := h.s.WatchSerial(old, wait)
	if old != 0 && serial == old {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	workers, _, _ := h.s.Workers()
	l := make([]*WorkerInfo, 0, len(workers))
	for i, wk := range workers {
		l = append(l, workerInfo(i, wk))
	}
	h.writeJson(w, strconv.FormatInt(serial, 10), l)
}

func (h *Handler) findWorker(r *http.Request) (int, *shepherd.Worker, *Error) {
	vars := mux.Vars(r)
	index, e := strconv.Atoi(vars["index"])
	if e != nil {
		return 0, nil, &Error{http.StatusBadRequest, "Bad worker index"}
	}
	workers, _, _ := h.s.Workers()
	if index < 0 || index >= len(workers) {
		return 0, nil, &Error{http.StatusNotFound, "Worker not found"}
	}
	return index, workers[index], nil
}

func (h *Handler) getWorker(w http.ResponseWriter, r *http.Request) {
	if index, wk, e := h.findWorker(r); e != nil {
		h.writeError(w, e)
	} else {
		h.writeJson(w, "", workerInfo(index, wk))
	}
}

// stopWorker requests a graceful stop.  The supervisor will restart the
// worker on a later sweep; paired with restartWorker it is the manual
// recycle button.
func (h *Handler) stopWorker(w http.ResponseWriter, r *http.Request) {
	if _, wk, e := h.findWorker(r); e != nil {
		h.writeError(w, e)
	} else {
		wk.Stop()
		h.writeJson(w, "", ok)
	}
}

func (h *Handler) restartWorker(w http.ResponseWriter, r *http.Request) {
	if _, wk, e := h.findWorker(r); e != nil {
		h.writeError(w, e)
	} else {
		// Stop is cooperative; the supervisor spawns the fresh
		// handle once the old one is gone.
		wk.Stop()
		h.writeJson(w, "", ok)
	}
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	old, wait := watchArg(r)
	if wait > 0 {
		h.s.WatchLog(old, wait)
	}
	records, id := h.s.GetLog(old)
	if old != 0 && id == old {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	l := make([]LogRecord, 0, len(records))
	for _, rec := range records {
		l = append(l, LogRecord{Id: rec.Id, Time: rec.Time, Text: rec.Text})
	}
	h.writeJson(w, strconv.FormatInt(id, 10), l)
}
