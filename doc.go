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

// Package shepherd provides the runtime for multi-interface network
// services: a master process binds the configured listening sockets,
// spawns a group of worker processes (or goroutines) per interface plus
// any configured background jobs, and supervises the lot -- detecting
// workers that die, classifying how they died, and restarting them
// subject to a shared restart budget.
//
// Workers come in two flavors, chosen at configuration time.  Process
// workers are separate OS processes created by re-executing the current
// binary; they inherit their listening sockets by file descriptor and
// carry a watchdog that notices when the master has died and shuts the
// worker down rather than leaving an orphan.  Thread workers are plain
// goroutines inside the master, useful for development mode and for
// jobs that have no isolation requirement.
//
// Coordination between the master and a worker is deliberately minimal:
// a set-once readiness flag travelling worker to master, and a stop
// request travelling master to worker.  Everything else a worker needs
// is handed to it at spawn time.
//
// Applications register worker functions by name and then hand control
// to the cli package; see examples/demoapp for the canonical wiring.
package shepherd
