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
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signals the master reacts to.  Interrupt and terminate drive the
// shutdown path; the user signals are forwarded to process workers and
// to registered hooks (refresh configuration, dump diagnostics, or
// whatever the application wires up).
var (
	sigInt  os.Signal = syscall.SIGINT
	sigTerm os.Signal = syscall.SIGTERM
	sigUsr1 os.Signal = syscall.SIGUSR1
	sigUsr2 os.Signal = syscall.SIGUSR2
)

// signalName resolves a signal number to its symbolic name for log
// messages ("SIGINT" rather than 2).
func signalName(num int) string {
	if name := unix.SignalName(syscall.Signal(num)); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", num)
}

var (
	hooksMx sync.Mutex
	hooks   = map[string]func(){}
)

// RegisterHook makes fn available under name, so configuration can
// refer to signal hooks by string the same way it refers to worker
// targets.
func RegisterHook(name string, fn func()) {
	hooksMx.Lock()
	hooks[name] = fn
	hooksMx.Unlock()
}

// LookupHook returns the hook registered under name.
func LookupHook(name string) (func(), bool) {
	hooksMx.Lock()
	fn, ok := hooks[name]
	hooksMx.Unlock()
	return fn, ok
}
