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

// shepherdtop is a small terminal client for a running master's
// management API: one screen, one row per worker, refreshed by
// long-polling the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell"

	"github.com/shepherd-run/shepherd/rest"
)

var addr string = "http://127.0.0.1:8321"

type top struct {
	screen  tcell.Screen
	client  *rest.Client
	info    *rest.SupervisorInfo
	workers []*rest.WorkerInfo
	err     error
}

func (t *top) emit(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (t *top) draw() {
	t.screen.Clear()
	bold := tcell.StyleDefault.Bold(true)
	plain := tcell.StyleDefault
	bad := tcell.StyleDefault.Foreground(tcell.ColorRed)

	title := "shepherdtop"
	if t.info != nil {
		title = fmt.Sprintf("%s - %d workers, budget %d",
			t.info.Name, t.info.Workers, t.info.MaxRestarts)
	}
	t.emit(0, 0, bold, title)
	if t.err != nil {
		t.emit(0, 1, bad, t.err.Error())
	}

	t.emit(0, 2, bold, fmt.Sprintf("%-3s %-16s %-8s %-8s %6s %7s %s",
		"IDX", "NAME", "STATE", "READY", "PID", "STARTS", "RUN"))
	for i, w := range t.workers {
		state, style := "alive", plain
		switch {
		case !w.Started:
			state = "new"
		case !w.Alive:
			state, style = "dead", bad
		}
		t.emit(0, 3+i, style, fmt.Sprintf("%-3d %-16s %-8s %-8v %6d %7d %s",
			w.Index, w.Name, state, w.Ready, w.Pid, w.Starts, w.RunID))
	}
	t.emit(0, 4+len(t.workers), plain, "[q] quit  [r] refresh")
	t.screen.Show()
}

// snapshot is one fetched view of the server, handed to the draw loop
// so the poller never writes state the drawer is reading.
type snapshot struct {
	info    *rest.SupervisorInfo
	workers []*rest.WorkerInfo
	err     error
}

func fetch(ctx context.Context, client *rest.Client, watch int) snapshot {
	rctx, cancel := context.WithTimeout(ctx, time.Duration(watch+5)*time.Second)
	defer cancel()
	var s snapshot
	s.info, s.err = client.Info(rctx)
	if s.err == nil {
		s.workers, s.err = client.Workers(rctx, watch)
	}
	return s
}

func (t *top) apply(s snapshot) {
	t.info, t.workers, t.err = s.info, s.workers, s.err
}

func main() {
	flag.StringVar(&addr, "a", addr, "management API address")
	flag.Parse()

	screen, e := tcell.NewScreen()
	if e != nil {
		fmt.Fprintf(os.Stderr, "Failed to open screen: %v\n", e)
		os.Exit(1)
	}
	if e := screen.Init(); e != nil {
		fmt.Fprintf(os.Stderr, "Failed to init screen: %v\n", e)
		os.Exit(1)
	}
	defer screen.Fini()

	t := &top{screen: screen, client: rest.NewClient(nil, addr)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan tcell.Event, 8)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	// Updates arrive from a long poll so a change on the server is
	// reflected within a second or two without hammering it.
	updates := make(chan snapshot, 1)
	go func() {
		for {
			s := fetch(ctx, t.client, 2)
			select {
			case updates <- s:
			case <-ctx.Done():
				return
			}
			time.Sleep(time.Second)
		}
	}()

	t.draw()
	for {
		select {
		case s := <-updates:
			t.apply(s)
			t.draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				t.draw()
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape,
					ev.Key() == tcell.KeyCtrlC,
					ev.Rune() == 'q':
					return
				case ev.Rune() == 'r':
					t.apply(fetch(ctx, t.client, 0))
					t.draw()
				}
			}
		}
	}
}
