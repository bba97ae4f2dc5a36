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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shepherd-run/shepherd/config"
)

func newShowconfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "showconfig",
		Short: "print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, e := config.Load(cfgFile)
			if e != nil {
				return e
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 8, 2, ' ', 0)
			for _, item := range cfg.Items() {
				fmt.Fprintf(tw, "%s\t%s\n", item[0], item[1])
			}
			return tw.Flush()
		},
	}
}
