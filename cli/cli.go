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

// Package cli provides the management commands an application's main
// hands control to after registering its worker targets:
//
//	shepherd.Register("http", shepherd.HTTPWorker(routes))
//	cli.Execute("myapp")
//
// Execute dispatches re-executed worker processes before any command
// parsing, so every command line works unchanged in the children.
package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shepherd-run/shepherd"
)

var cfgFile string

// Execute runs the command line.  It exits the process: 0 on a normal
// return, 1 when a command fails.
func Execute(name string) {
	// Worker processes never come back from this.
	shepherd.WorkerMain()

	root := NewRootCmd(name)
	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
	os.Exit(0)
}

// NewRootCmd builds the command tree; split out of Execute for tests.
func NewRootCmd(name string) *cobra.Command {
	root := &cobra.Command{
		Use:           name,
		Short:         name + " service runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"path to the TOML configuration file (default $"+`SHEPHERD_CONFIG`+")")
	root.AddCommand(
		newRunserverCmd(),
		newDevserverCmd(),
		newShowconfigCmd(),
		newStartprojectCmd(),
	)
	return root
}
