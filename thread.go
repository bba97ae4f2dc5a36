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
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// ThreadStrategy runs workers as goroutines inside the master process.
// Thread workers share the master's address space and die with it, so
// they have no parent watchdog; the stop request on Env.Quit is their
// only shutdown trigger.  This is the strategy used by development mode
// and by background jobs that need no isolation.
type ThreadStrategy struct {
	logger *logrus.Logger
}

// NewThreadStrategy returns a ThreadStrategy.  A nil logger means the
// logrus standard logger.
func NewThreadStrategy(logger *logrus.Logger) *ThreadStrategy {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ThreadStrategy{logger: logger}
}

// threadIDs mints synthetic identities; pids and these never need to be
// comparable, they only label log lines and API responses.
var threadIDs int64

type threadHandle struct {
	id    int
	runID string
	flag  Flag
	env   *Env
	done  chan struct{}
	code  int // written once before done is closed
}

func (t *ThreadStrategy) Spawn(spec Spec) (handle, error) {
	fn, ok := lookupTarget(spec.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, spec.Target)
	}

	h := &threadHandle{
		id:    int(atomic.AddInt64(&threadIDs, 1)),
		runID: xid.New().String(),
		done:  make(chan struct{}),
	}
	h.env = &Env{
		Name:      spec.Name,
		Listeners: spec.Listeners,
		Logger: t.logger.WithFields(logrus.Fields{
			"worker": spec.Name,
			"run":    h.runID,
		}),
		ready: &h.flag,
		quit:  make(chan struct{}),
	}

	go func() {
		h.env.Logger.Infof("Worker '%s' has been started with id %d", spec.Name, h.id)
		if err := fn(h.env); err != nil {
			h.env.Logger.WithError(err).Errorf("Worker '%s' failed", spec.Name)
			h.code = 1
		}
		close(h.done)
	}()

	return h, nil
}

func (h *threadHandle) ID() int {
	return h.id
}

func (h *threadHandle) RunID() string {
	return h.runID
}

func (h *threadHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *threadHandle) ExitCode() int {
	select {
	case <-h.done:
		return h.code
	default:
		return 0
	}
}

func (h *threadHandle) Ready() bool {
	return h.flag.Ready()
}

func (h *threadHandle) Stop() {
	h.env.requestStop()
}
