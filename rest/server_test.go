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

package rest

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/shepherd-run/shepherd"
)

func TestAPI(t *testing.T) {
	Convey("Given a master serving the management API", t, func() {
		llog := logrus.New()
		llog.SetOutput(io.Discard)
		shepherd.Register("api-steady", func(env *shepherd.Env) error {
			env.Ready()
			<-env.Quit()
			return nil
		})

		s := shepherd.NewSupervisor("api-test")
		s.SetLogger(log.New(io.Discard, "", 0))
		w := shepherd.NewWorker("steady", shepherd.NewThreadStrategy(llog),
			shepherd.Spec{Target: "api-steady"})
		s.AddWorker(w)
		So(s.StartAll(), ShouldBeNil)
		Reset(s.Shutdown)

		srv := httptest.NewServer(NewHandler(s))
		Reset(srv.Close)
		c := NewClient(srv.Client(), srv.URL)
		ctx := context.Background()

		Convey("Info reports the supervisor", func() {
			info, e := c.Info(ctx)
			So(e, ShouldBeNil)
			So(info.Name, ShouldEqual, "api-test")
			So(info.Workers, ShouldEqual, 1)

			Convey("A repeat fetch is served from the etag cache", func() {
				again, e := c.Info(ctx)
				So(e, ShouldBeNil)
				So(again, ShouldEqual, info)
			})
		})

		Convey("Workers lists the pool", func() {
			l, e := c.Workers(ctx, 0)
			So(e, ShouldBeNil)
			So(len(l), ShouldEqual, 1)
			So(l[0].Index, ShouldEqual, 0)
			So(l[0].Name, ShouldEqual, "steady")
			So(l[0].Alive, ShouldBeTrue)
			So(l[0].Ready, ShouldBeTrue)
			So(l[0].ExitCode, ShouldBeNil)

			single, e := c.Worker(ctx, 0)
			So(e, ShouldBeNil)
			So(single.RunID, ShouldEqual, l[0].RunID)
		})

		Convey("An out of range index is a 404", func() {
			_, e := c.Worker(ctx, 5)
			So(e, ShouldNotBeNil)
			apiErr, ok := e.(*Error)
			So(ok, ShouldBeTrue)
			So(apiErr.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("StopWorker stops the worker", func() {
			So(c.StopWorker(ctx, 0), ShouldBeNil)
			deadline := time.Now().Add(2 * time.Second)
			for w.Alive() && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(w.Alive(), ShouldBeFalse)

			Convey("Its exit code shows up in the listing", func() {
				l, e := c.Workers(ctx, 0)
				So(e, ShouldBeNil)
				So(l[0].ExitCode, ShouldNotBeNil)
				So(*l[0].ExitCode, ShouldEqual, 0)
			})
		})

		Convey("The retained log is served", func() {
			recs, e := c.Log(ctx, 0)
			So(e, ShouldBeNil)
			So(len(recs), ShouldBeGreaterThan, 0)
		})
	})
}
