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
	"errors"
)

var (
	ErrBadInterface    = errors.New("interface must listen on TCP or a unix socket")
	ErrAlreadyStarted  = errors.New("worker already started")
	ErrNotStarted      = errors.New("worker has not been started yet")
	ErrStillRunning    = errors.New("worker has not exited yet")
	ErrStartTimeout    = errors.New("timeout during worker start")
	ErrEarlyExit       = errors.New("worker exited before becoming ready")
	ErrUnknownTarget   = errors.New("no worker registered with that name")
	ErrTooManyRestarts = errors.New("too many child restarts")
)
