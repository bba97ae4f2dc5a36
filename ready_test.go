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
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFlag(t *testing.T) {
	Convey("A readiness flag latches up exactly once", t, func() {
		var f Flag
		So(f.Ready(), ShouldBeFalse)
		f.Set()
		So(f.Ready(), ShouldBeTrue)
		f.Set()
		So(f.Ready(), ShouldBeTrue)
	})

	Convey("Racing setters settle on up", t, func() {
		var f Flag
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.Set()
			}()
		}
		wg.Wait()
		So(f.Ready(), ShouldBeTrue)
	})
}

func TestReadyPipe(t *testing.T) {
	Convey("A byte on the readiness pipe latches the parent flag", t, func() {
		r, w, e := os.Pipe()
		So(e, ShouldBeNil)

		var f Flag
		go drainReady(r, &f)
		So(f.Ready(), ShouldBeFalse)

		rp := &readyPipe{w: w}
		rp.Set()
		rp.Set()
		So(waitFor(2*time.Second, f.Ready), ShouldBeTrue)

		Convey("The writer closing afterwards changes nothing", func() {
			w.Close()
			time.Sleep(10 * time.Millisecond)
			So(f.Ready(), ShouldBeTrue)
		})
	})

	Convey("A pipe closed without a byte never latches", t, func() {
		r, w, e := os.Pipe()
		So(e, ShouldBeNil)

		var f Flag
		done := make(chan struct{})
		go func() {
			drainReady(r, &f)
			close(done)
		}()

		w.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			So("drain did not return", ShouldBeBlank)
		}
		So(f.Ready(), ShouldBeFalse)
	})
}
