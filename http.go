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
	"net"
	"net/http"
	"time"
)

// httpDrain is how long an HTTP worker lets in-flight requests finish
// after a stop request before giving up on them.
const httpDrain = 5 * time.Second

// workerListener dups l so the worker owns the copy it serves.  The
// master's listeners are shared by every worker of an interface;
// http.Server.Shutdown closes the listeners it serves, and it must be
// able to, or its accept loops never exit.  Closing the dup leaves the
// master's descriptor (and any sibling's) untouched, the same way a
// worker process inherits its own descriptor copy.
func workerListener(l net.Listener) (net.Listener, error) {
	fl, ok := l.(filer)
	if !ok {
		return nil, fmt.Errorf("listener %T cannot be shared with a worker", l)
	}
	f, e := fl.File()
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return net.FileListener(f)
}

// HTTPWorker adapts an http.Handler into a WorkerFunc that serves it on
// every listener the interface was bound to.  Readiness is reported
// once all listeners are being served; a stop request drains in-flight
// requests and returns cleanly.  This is the usual routing target for
// an interface.
func HTTPWorker(handler http.Handler) WorkerFunc {
	return func(env *Env) error {
		ls := make([]net.Listener, 0, len(env.Listeners))
		for _, l := range env.Listeners {
			wl, e := workerListener(l)
			if e != nil {
				for _, o := range ls {
					o.Close()
				}
				return e
			}
			ls = append(ls, wl)
		}

		srv := &http.Server{Handler: handler}
		errs := make(chan error, len(ls))
		for _, l := range ls {
			go func(l net.Listener) {
				if e := srv.Serve(l); e != http.ErrServerClosed {
					errs <- e
				}
			}(l)
		}
		env.Ready()
		select {
		case <-env.Quit():
			ctx, cancel := context.WithTimeout(context.Background(), httpDrain)
			defer cancel()
			return srv.Shutdown(ctx)
		case e := <-errs:
			srv.Close()
			return e
		}
	}
}
