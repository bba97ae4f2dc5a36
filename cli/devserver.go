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

package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shepherd-run/shepherd"
	"github.com/shepherd-run/shepherd/config"
)

func newDevserverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devserver",
		Short: "run everything in one process (debug mode)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, e := config.Load(cfgFile)
			if e != nil {
				return e
			}
			// One goroutine worker per interface, no subprocesses;
			// the whole service is debuggable in a single pid.
			for i := range cfg.Interfaces {
				cfg.Interfaces[i].Processes = 1
			}
			strat := shepherd.NewThreadStrategy(logrus.StandardLogger())
			sup, e := newSupervisor(cfg, strat)
			if e != nil {
				return e
			}
			return serve(cmd.Context(), cfg, sup)
		},
	}
}
