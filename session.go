// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sidewinder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser opens page sessions. Each concurrent extraction owns its own
// session; sessions share no mutable state.
type Browser interface {
	Open(ctx context.Context) (Session, error)
	Close()
}

// Session is a single browser page. A test double can substitute canned HTML
// pages by answering Evaluate calls without a browser runtime.
type Session interface {
	// Navigate loads url and returns once network activity has quiesced.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs a JavaScript expression in the page and unmarshals the
	// result into result.
	Evaluate(ctx context.Context, expression string, result interface{}) error
	// CurrentURL returns the document location, after any redirects.
	CurrentURL(ctx context.Context) (string, error)
	// Close releases the page. Must be called on every exit path.
	Close()
}

// ChromeBrowser implements Browser on a shared headless Chrome allocator.
// Parallel sessions are bounded by the orchestrator's batch size; each
// browser context consumes ~100-200MB RAM, so very high parallelism (>10)
// may cause high memory/CPU usage.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	quiescence  time.Duration
}

// NewChromeBrowser starts a headless Chrome allocator with the config's
// navigation timing.
func NewChromeBrowser(cfg *Config) *ChromeBrowser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     cfg.NavigationTimeout,
		quiescence:  cfg.QuiescenceWindow,
	}
}

func (b *ChromeBrowser) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	return &chromeSession{
		ctx:        tabCtx,
		cancel:     cancel,
		timeout:    b.timeout,
		quiescence: b.quiescence,
	}, nil
}

// Close tears down the allocator and every browser it spawned. Call it when
// the application exits.
func (b *ChromeBrowser) Close() {
	b.allocCancel()
}

type chromeSession struct {
	ctx        context.Context
	cancel     context.CancelFunc
	timeout    time.Duration
	quiescence time.Duration
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	inflight := newInflightTracker()
	chromedp.ListenTarget(runCtx, inflight.handle)

	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %v", url, err)
	}

	// Lazy-loaded content keeps the network busy after the body is ready;
	// waiting for the in-flight request count to stay at zero is a
	// heuristic, so running out the timeout is not a navigation failure.
	inflight.awaitQuiescence(runCtx, s.quiescence)
	return nil
}

func (s *chromeSession) Evaluate(ctx context.Context, expression string, result interface{}) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, result)); err != nil {
		return fmt.Errorf("evaluate failed: %v", err)
	}
	return nil
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var location string
	if err := chromedp.Run(runCtx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %v", err)
	}
	return location, nil
}

func (s *chromeSession) Close() {
	s.cancel()
}

// inflightTracker counts network requests that have been sent but not yet
// finished or failed.
type inflightTracker struct {
	mu           sync.Mutex
	pending      map[network.RequestID]struct{}
	lastActivity time.Time
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{
		pending:      make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
}

func (t *inflightTracker) handle(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.mu.Lock()
		t.pending[ev.RequestID] = struct{}{}
		t.lastActivity = time.Now()
		t.mu.Unlock()
	case *network.EventLoadingFinished:
		t.mu.Lock()
		delete(t.pending, ev.RequestID)
		t.lastActivity = time.Now()
		t.mu.Unlock()
	case *network.EventLoadingFailed:
		t.mu.Lock()
		delete(t.pending, ev.RequestID)
		t.lastActivity = time.Now()
		t.mu.Unlock()
	}
}

// awaitQuiescence blocks until no request has been in flight for the given
// window, or ctx expires.
func (t *inflightTracker) awaitQuiescence(ctx context.Context, window time.Duration) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			quiet := len(t.pending) == 0 && time.Since(t.lastActivity) >= window
			t.mu.Unlock()
			if quiet {
				return
			}
		}
	}
}
