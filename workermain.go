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
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// EnvLogLevel lets the master hand its log level down to worker
// processes without them reloading configuration.
const EnvLogLevel = "SHEPHERD_LOG_LEVEL"

// watchdogTick is how often a process worker compares its current
// parent pid against the one recorded at startup.
const watchdogTick = 250 * time.Millisecond

// WorkerMain is the worker-process entry point.  Call it at the top of
// main, before any command dispatch: in the master it returns
// immediately, in a re-executed worker process it runs the assigned
// target and exits the process with 0 on a clean stop or 1 on error.
//
// The worker stops when it is asked to (SIGTERM or SIGINT from the
// master) or when the watchdog notices that the pid of its parent has
// changed, meaning the master died and the worker has been adopted by
// the init reaper.
func WorkerMain() {
	target := os.Getenv(envWorkerTarget)
	if target == "" {
		return
	}
	name := os.Getenv(envWorkerName)
	if name == "" {
		name = target
	}

	if lvl, e := logrus.ParseLevel(os.Getenv(EnvLogLevel)); e == nil {
		logrus.SetLevel(lvl)
	}
	logger := logrus.WithFields(logrus.Fields{
		"worker": name,
		"pid":    os.Getpid(),
	})

	fn, ok := lookupTarget(target)
	if !ok {
		logger.Errorf("No worker registered for target %q", target)
		os.Exit(1)
	}

	env := &Env{
		Name:   name,
		Logger: logger,
		ready:  &readyPipe{w: os.NewFile(readyFd, "ready")},
		quit:   make(chan struct{}),
	}

	n, _ := strconv.Atoi(os.Getenv(envListeners))
	for i := 0; i < n; i++ {
		f := os.NewFile(uintptr(listenersFd+i), fmt.Sprintf("listener-%d", i))
		l, e := net.FileListener(f)
		f.Close()
		if e != nil {
			logger.WithError(e).Error("Failed to rebuild inherited listener")
			os.Exit(1)
		}
		env.Listeners = append(env.Listeners, l)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigs
		env.requestStop()
	}()

	go watchParent(env, logger)

	logger.Infof("Worker '%s' has been started with pid %d", name, os.Getpid())
	if err := fn(env); err != nil {
		logger.WithError(err).Errorf("Worker '%s' failed", name)
		os.Exit(1)
	}
	os.Exit(0)
}

func watchParent(env *Env, logger *logrus.Entry) {
	watchdog(env, logger, os.Getppid, watchdogTick)
}

// watchdog records the parent pid once, at worker startup, and then
// compares it against the live parent on every tick.  A mismatch means
// the original master is gone and some other process has adopted us, so
// the worker must shut itself down.
func watchdog(env *Env, logger *logrus.Entry, getParent func() int, tick time.Duration) {
	parent := getParent()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-env.quit:
			return
		case <-ticker.C:
			if getParent() != parent {
				logger.Warnf("Worker '%s' lost its master, stopping", env.Name)
				env.requestStop()
				return
			}
		}
	}
}
