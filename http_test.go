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
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

func httpEnv(name string, ls []net.Listener) (*Env, *Flag) {
	f := &Flag{}
	return &Env{
		Name:      name,
		Listeners: ls,
		Logger:    logrus.NewEntry(quietLogrus()),
		ready:     f,
		quit:      make(chan struct{}),
	}, f
}

func TestHTTPWorker(t *testing.T) {
	Convey("An HTTP worker serves its listener until asked to stop", t, func() {
		sock := filepath.Join(t.TempDir(), "w.sock")
		l, e := net.Listen("unix", sock)
		So(e, ShouldBeNil)
		defer l.Close()

		fn := HTTPWorker(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			}))

		env, f := httpEnv("web", []net.Listener{l})
		done := make(chan error, 1)
		go func() { done <- fn(env) }()

		So(waitFor(2*time.Second, f.Ready), ShouldBeTrue)

		resp, e := unixClient(sock).Get("http://shepherd/")
		So(e, ShouldBeNil)
		resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		Convey("A stop request drains and returns clean quickly", func() {
			begin := time.Now()
			env.requestStop()
			select {
			case e := <-done:
				So(e, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("worker did not drain", ShouldBeBlank)
			}
			So(time.Since(begin), ShouldBeLessThan, 2*time.Second)

			Convey("The master's listener survives the worker", func() {
				So(l.Close(), ShouldBeNil)
			})
		})

		Convey("A sibling on the same listener keeps serving", func() {
			sibling, sf := httpEnv("web", []net.Listener{l})
			sdone := make(chan error, 1)
			go func() { sdone <- fn(sibling) }()
			So(waitFor(2*time.Second, sf.Ready), ShouldBeTrue)

			env.requestStop()
			select {
			case e := <-done:
				So(e, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("worker did not drain", ShouldBeBlank)
			}

			resp, e := unixClient(sock).Get("http://shepherd/")
			So(e, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			sibling.requestStop()
			select {
			case e := <-sdone:
				So(e, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("sibling did not drain", ShouldBeBlank)
			}
		})
	})
}
