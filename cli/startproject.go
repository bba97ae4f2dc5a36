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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const mainTemplate = `package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shepherd-run/shepherd"
	"github.com/shepherd-run/shepherd/cli"
)

func routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("hello from %s\n"))
	}).Methods("GET")
	return r
}

func main() {
	shepherd.Register("http", shepherd.HTTPWorker(routes()))
	cli.Execute("%s")
}
`

const configTemplate = `name = "%s"
control = "127.0.0.1:8321"

[logging]
level = "info"
format = "text"

[[interface]]
name = "http"
listen = ":8080"
processes = 2
target = "http"
start_timeout = 5.0
`

func newStartprojectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "startproject <name>",
		Short: "generate a new project skeleton",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if e := os.Mkdir(name, 0o755); e != nil {
				return e
			}
			files := map[string]string{
				"main.go":     fmt.Sprintf(mainTemplate, name, name),
				"config.toml": fmt.Sprintf(configTemplate, name),
			}
			for fname, body := range files {
				path := filepath.Join(name, fname)
				if e := os.WriteFile(path, []byte(body), 0o644); e != nil {
					return e
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project '%s' created\n", name)
			return nil
		},
	}
}
