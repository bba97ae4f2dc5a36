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
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shepherd-run/shepherd"
	"github.com/shepherd-run/shepherd/config"
	"github.com/shepherd-run/shepherd/rest"
)

func newRunserverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runserver",
		Short: "run the production server (one process group per interface)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, e := config.Load(cfgFile)
			if e != nil {
				return e
			}
			sup, e := newSupervisor(cfg, nil)
			if e != nil {
				return e
			}
			return serve(cmd.Context(), cfg, sup)
		},
	}
}

// newSupervisor assembles a supervisor from the configuration.  A nil
// strategy means process workers; devserver passes the thread strategy.
func newSupervisor(cfg *config.Config, strat shepherd.Strategy) (*shepherd.Supervisor, error) {
	if e := config.ConfigureLogging(cfg.Logging); e != nil {
		return nil, e
	}

	sup := shepherd.NewSupervisor(cfg.Name)
	sup.SetMaxRestarts(cfg.MaxRestarts)

	var extraEnv []string
	if strat == nil {
		strat = shepherd.NewProcessStrategy(sup.Logger())
		extraEnv = []string{
			shepherd.EnvLogLevel + "=" + cfg.Logging.Level,
		}
		if cfgFile != "" {
			extraEnv = append(extraEnv, config.EnvConfig+"="+cfgFile)
		}
	}

	workers, e := shepherd.BuildWorkers(cfg, strat, sup.Logger(), extraEnv)
	if e != nil {
		return nil, e
	}
	for _, w := range workers {
		sup.AddWorker(w)
	}

	hookFor := func(sig os.Signal, name string) error {
		if name == "" {
			return nil
		}
		fn, ok := shepherd.LookupHook(name)
		if !ok {
			return fmt.Errorf("no hook registered under %q", name)
		}
		sup.OnSignal(sig, fn)
		return nil
	}
	if e := hookFor(syscall.SIGUSR1, cfg.SigUSR1Hook); e != nil {
		return nil, e
	}
	if e := hookFor(syscall.SIGUSR2, cfg.SigUSR2Hook); e != nil {
		return nil, e
	}

	return sup, nil
}

// serve runs the supervisor and, when configured, the management API
// beside it, until whichever finishes first tears the other down.
func serve(parent context.Context, cfg *config.Config, sup *shepherd.Supervisor) error {
	sup.NotifySignals()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return sup.Run(ctx)
	})

	if cfg.Control != "" {
		srv := &http.Server{Addr: cfg.Control, Handler: rest.NewHandler(sup)}
		g.Go(func() error {
			if e := srv.ListenAndServe(); e != http.ErrServerClosed {
				return e
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	return g.Wait()
}
