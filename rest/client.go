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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// Client talks to a master's management API.  It remembers the etag of
// everything it fetched, so repeated calls turn into cheap conditional
// requests and Watch* calls into server-side long polls.
type Client struct {
	base   string
	client *http.Client

	lock        sync.Mutex
	info        *SupervisorInfo
	workers     []*WorkerInfo
	workersEtag string
	logRecords  []LogRecord
	logEtag     string
}

// NewClient returns a Client for the API rooted at base, for example
// "http://127.0.0.1:8321".  A nil hc means http.DefaultClient.
func NewClient(hc *http.Client, base string) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: base, client: hc}
}

// get performs a conditional GET; watch is the number of seconds the
// server may hang the request waiting for a change (0 for none).  It
// returns the new etag, or the old one when the resource is unchanged,
// in which case v is left alone.
func (c *Client) get(ctx context.Context, url, etag string, watch int, v interface{}) (string, error) {
	if watch > 0 {
		url = fmt.Sprintf("%s?watch=%d", url, watch)
	}
	req, e := http.NewRequestWithContext(ctx, "GET", url, nil)
	if e != nil {
		return etag, e
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return etag, e
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusNotModified:
		io.Copy(io.Discard, res.Body)
		return etag, nil
	case http.StatusOK:
		if e := json.NewDecoder(res.Body).Decode(v); e != nil {
			return etag, e
		}
		if t := res.Header.Get("Etag"); t != "" {
			etag = t
		}
		return etag, nil
	default:
		apiErr := &Error{}
		if e := json.NewDecoder(res.Body).Decode(apiErr); e != nil {
			return etag, fmt.Errorf("HTTP %s", res.Status)
		}
		return etag, apiErr
	}
}

func (c *Client) post(ctx context.Context, url string) error {
	req, e := http.NewRequestWithContext(ctx, "POST", url, nil)
	if e != nil {
		return e
	}
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		apiErr := &Error{}
		if e := json.NewDecoder(res.Body).Decode(apiErr); e != nil {
			return fmt.Errorf("HTTP %s", res.Status)
		}
		return apiErr
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

// Info fetches the supervisor snapshot.
func (c *Client) Info(ctx context.Context) (*SupervisorInfo, error) {
	c.lock.Lock()
	info := c.info
	etag := ""
	if info != nil {
		etag = info.etag
	}
	c.lock.Unlock()

	fresh := &SupervisorInfo{}
	newTag, e := c.get(ctx, c.base+"/", etag, 0, fresh)
	if e != nil {
		return nil, e
	}
	if newTag == etag && info != nil {
		return info, nil
	}
	fresh.etag = newTag
	c.lock.Lock()
	c.info = fresh
	c.lock.Unlock()
	return fresh, nil
}

// Workers fetches the worker list, long-polling up to watch seconds
// when the list has not changed since the previous call.
func (c *Client) Workers(ctx context.Context, watch int) ([]*WorkerInfo, error) {
	c.lock.Lock()
	etag := c.workersEtag
	cached := c.workers
	c.lock.Unlock()

	var fresh []*WorkerInfo
	newTag, e := c.get(ctx, c.base+"/workers", etag, watch, &fresh)
	if e != nil {
		return nil, e
	}
	if newTag == etag && cached != nil {
		return cached, nil
	}
	c.lock.Lock()
	c.workers = fresh
	c.workersEtag = newTag
	c.lock.Unlock()
	return fresh, nil
}

// Worker fetches one worker by its index.
func (c *Client) Worker(ctx context.Context, index int) (*WorkerInfo, error) {
	info := &WorkerInfo{}
	if _, e := c.get(ctx, c.base+"/workers/"+strconv.Itoa(index), "", 0, info); e != nil {
		return nil, e
	}
	return info, nil
}

// StopWorker asks the master to stop a worker; the supervisor's restart
// policy applies as if it had exited on its own.
func (c *Client) StopWorker(ctx context.Context, index int) error {
	return c.post(ctx, c.base+"/workers/"+strconv.Itoa(index)+"/stop")
}

// RestartWorker recycles a worker.
func (c *Client) RestartWorker(ctx context.Context, index int) error {
	return c.post(ctx, c.base+"/workers/"+strconv.Itoa(index)+"/restart")
}

// Log fetches retained log records, long-polling up to watch seconds.
func (c *Client) Log(ctx context.Context, watch int) ([]LogRecord, error) {
	c.lock.Lock()
	etag := c.logEtag
	cached := c.logRecords
	c.lock.Unlock()

	var fresh []LogRecord
	newTag, e := c.get(ctx, c.base+"/log", etag, watch, &fresh)
	if e != nil {
		return nil, e
	}
	if newTag == etag && cached != nil {
		return cached, nil
	}
	c.lock.Lock()
	c.logRecords = fresh
	c.logEtag = newTag
	c.lock.Unlock()
	return fresh, nil
}
