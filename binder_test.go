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
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/shepherd-run/shepherd/config"
)

func TestBuildWorkers(t *testing.T) {
	Convey("Given interface configurations", t, func() {
		logger := log.New(io.Discard, "", 0)
		strat := NewThreadStrategy(quietLogrus())

		Convey("An interface listening nowhere is rejected", func() {
			cfg := &config.Config{Interfaces: []config.Interface{
				{Name: "bad", Processes: 1, Target: "t"},
			}}
			_, e := BuildWorkers(cfg, strat, logger, nil)
			So(errors.Is(e, ErrBadInterface), ShouldBeTrue)
		})

		Convey("A unix socket interface yields one worker per process", func() {
			cfg := &config.Config{Interfaces: []config.Interface{
				{
					Name:       "http",
					UnixSocket: filepath.Join(t.TempDir(), "http.sock"),
					Processes:  2,
					Target:     "t",
				},
			}}
			ws, e := BuildWorkers(cfg, strat, logger, nil)
			So(e, ShouldBeNil)
			So(len(ws), ShouldEqual, 2)
			So(ws[0].Name(), ShouldEqual, "http")
			So(ws[1].Name(), ShouldEqual, "http")
			So(ws[0].HasStarted(), ShouldBeFalse)
		})

		Convey("A non-positive count means one worker per core", func() {
			cfg := &config.Config{Interfaces: []config.Interface{
				{
					Name:       "wide",
					UnixSocket: filepath.Join(t.TempDir(), "wide.sock"),
					Target:     "t",
				},
			}}
			ws, e := BuildWorkers(cfg, strat, logger, nil)
			So(e, ShouldBeNil)
			So(len(ws), ShouldEqual, runtime.NumCPU())
		})

		Convey("The single process fallback caps that at one", func() {
			cfg := &config.Config{
				SingleProcessFallback: true,
				Interfaces: []config.Interface{
					{
						Name:       "narrow",
						UnixSocket: filepath.Join(t.TempDir(), "narrow.sock"),
						Target:     "t",
					},
				},
			}
			ws, e := BuildWorkers(cfg, strat, logger, nil)
			So(e, ShouldBeNil)
			So(len(ws), ShouldEqual, 1)
		})

		Convey("Background jobs become workers without listeners", func() {
			cfg := &config.Config{Jobs: []config.Job{
				{Name: "sweep", Target: "t", WaitReady: true, Secs: 2.5},
			}}
			ws, e := BuildWorkers(cfg, strat, logger, nil)
			So(e, ShouldBeNil)
			So(len(ws), ShouldEqual, 1)
			So(ws[0].Name(), ShouldEqual, "sweep")
			waitReady, timeout := ws[0].WaitReady()
			So(waitReady, ShouldBeTrue)
			So(timeout, ShouldEqual, 2500*time.Millisecond)
		})
	})
}

func TestSupervisedInterfaces(t *testing.T) {
	Convey("Given two interfaces served by thread workers", t, func() {
		dir := t.TempDir()
		strat := NewThreadStrategy(quietLogrus())

		Register("test-serve", HTTPWorker(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			})))

		httpSock := filepath.Join(dir, "http.sock")
		adminSock := filepath.Join(dir, "admin.sock")
		cfg := &config.Config{
			Interfaces: []config.Interface{
				{Name: "http", UnixSocket: httpSock, Processes: 2, Target: "test-serve"},
				{Name: "admin", UnixSocket: adminSock, Processes: 1, Target: "test-serve"},
			},
		}

		s := NewSupervisor("e2e")
		SetTestLogger(t, s)
		s.SetInterval(10 * time.Millisecond)
		s.SetMaxRestarts(10)

		ws, e := BuildWorkers(cfg, strat, s.Logger(), nil)
		So(e, ShouldBeNil)
		So(len(ws), ShouldEqual, 3)
		for _, w := range ws {
			s.AddWorker(w)
		}

		done := make(chan error, 1)
		go func() { done <- s.Run(context.Background()) }()
		Reset(func() {
			s.Stop()
			<-done
		})

		So(waitFor(5*time.Second, func() bool {
			for _, w := range ws {
				if !w.Alive() || !w.Ready() {
					return false
				}
			}
			return true
		}), ShouldBeTrue)

		Convey("The interfaces answer over their sockets", func() {
			for _, sock := range []string{httpSock, adminSock} {
				client := unixClient(sock)
				resp, e := client.Get("http://shepherd/")
				So(e, ShouldBeNil)
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldEqual, "ok")
			}
		})

		Convey("A stopped worker is replaced, keeping the pool size", func() {
			old := ws[0].RunID()
			ws[0].Stop()

			So(waitFor(5*time.Second, func() bool {
				return ws[0].Alive() && ws[0].RunID() != old
			}), ShouldBeTrue)
			So(ws[0].Name(), ShouldEqual, "http")
			all, _, _ := s.Workers()
			So(len(all), ShouldEqual, 3)

			Convey("And the socket still answers", func() {
				resp, e := unixClient(httpSock).Get("http://shepherd/")
				So(e, ShouldBeNil)
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func unixClient(sock string) *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", sock)
			},
		},
	}
}
