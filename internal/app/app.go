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

// Package app is the core service layer. It owns the storage backends and
// the event sink, assembles the per-crawl pipeline, and tracks the crawls
// running in this process. The CLI and the MCP server are thin layers over
// it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentberlin/sidewinder"
	"github.com/agentberlin/sidewinder/storage"
)

// BrowserFactory builds the browser a crawl drives. The default launches
// headless Chrome; tests substitute canned sessions.
type BrowserFactory func(cfg *sidewinder.Config) sidewinder.Browser

// App wires the crawl engine to its backends and tracks the crawls running
// in this process.
type App struct {
	frontier   storage.Frontier
	history    storage.History
	blobs      storage.Blobs
	events     sidewinder.EventSink
	newBrowser BrowserFactory
	log        *logrus.Entry

	crawlsMutex  sync.RWMutex
	activeCrawls map[string]*activeCrawl
}

// activeCrawl is one crawl whose executions run in this process. All crawl
// progress lives in the frontier; this struct holds only what is needed to
// drive, stop, and resume the goroutine working on it.
type activeCrawl struct {
	cc     sidewinder.CrawlContext
	cfg    *sidewinder.Config
	runner *sidewinder.Runner
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	done    chan struct{}
	err     error
}

// New creates an App over the given backends. A nil events sink disables
// event emission and a nil browser factory launches headless Chrome.
func New(frontier storage.Frontier, history storage.History, blobs storage.Blobs, events sidewinder.EventSink, browser BrowserFactory, log *logrus.Entry) *App {
	if events == nil {
		events = sidewinder.NoOpSink{}
	}
	if browser == nil {
		browser = func(cfg *sidewinder.Config) sidewinder.Browser {
			return sidewinder.NewChromeBrowser(cfg)
		}
	}
	return &App{
		frontier:     frontier,
		history:      history,
		blobs:        blobs,
		events:       events,
		newBrowser:   browser,
		log:          log,
		activeCrawls: make(map[string]*activeCrawl),
	}
}

// newPipeline assembles the per-crawl orchestrator and runner for cfg.
func (a *App) newPipeline(cfg *sidewinder.Config) (*sidewinder.Orchestrator, *sidewinder.Runner, error) {
	fetcher := sidewinder.NewHTTPFetcher(cfg, a.log)
	filter, err := sidewinder.NewLinkFilter(cfg, fetcher)
	if err != nil {
		return nil, nil, err
	}
	extractor := sidewinder.NewExtractor(filter, fetcher, a.blobs, a.log)
	orch := sidewinder.NewOrchestrator(cfg, a.frontier, a.history, a.newBrowser(cfg), extractor, a.events, a.log)
	return orch, sidewinder.NewRunner(orch, a.log), nil
}

// StartCrawl validates the config, seeds the crawl, and drives it in the
// background. The returned CrawlContext identifies the crawl for Status,
// StopCrawl, and Wait.
func (a *App) StartCrawl(ctx context.Context, cfg *sidewinder.Config) (sidewinder.CrawlContext, error) {
	orch, runner, err := a.newPipeline(cfg)
	if err != nil {
		return sidewinder.CrawlContext{}, err
	}
	cc, err := orch.StartCrawl(ctx)
	if err != nil {
		return sidewinder.CrawlContext{}, err
	}
	a.launch(cc, cfg, runner)
	return cc, nil
}

// RunCrawl starts the crawl and blocks until it finishes. Cancelling ctx
// stops the crawl; its progress stays in the frontier for a later resume.
func (a *App) RunCrawl(ctx context.Context, cfg *sidewinder.Config) (sidewinder.CrawlContext, error) {
	cc, err := a.StartCrawl(ctx, cfg)
	if err != nil {
		return sidewinder.CrawlContext{}, err
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			_ = a.StopCrawl(cc.CrawlID)
		case <-finished:
		}
	}()

	return cc, a.Wait(cc.CrawlID)
}

// launch registers the crawl as active and starts its execution goroutine.
// The goroutine runs under a context independent of the caller's, so the
// crawl outlives the request that started it.
func (a *App) launch(cc sidewinder.CrawlContext, cfg *sidewinder.Config, runner *sidewinder.Runner) {
	runCtx, cancel := context.WithCancel(context.Background())
	ac := &activeCrawl{
		cc:      cc,
		cfg:     cfg,
		runner:  runner,
		cancel:  cancel,
		running: true,
		done:    make(chan struct{}),
	}
	a.crawlsMutex.Lock()
	a.activeCrawls[cc.CrawlID] = ac
	a.crawlsMutex.Unlock()
	go a.drive(runCtx, ac)
}

// drive runs the crawl to completion and settles the active entry. Crawls
// that finish cleanly are forgotten; stopped or failed ones stay in the map
// so ResumeCrawl can pick them back up.
func (a *App) drive(ctx context.Context, ac *activeCrawl) {
	err := ac.runner.Resume(ctx, ac.cc)

	ac.mu.Lock()
	ac.running = false
	ac.err = err
	done := ac.done
	ac.mu.Unlock()
	close(done)

	switch {
	case err == nil:
		a.crawlsMutex.Lock()
		delete(a.activeCrawls, ac.cc.CrawlID)
		a.crawlsMutex.Unlock()
	case errors.Is(err, context.Canceled):
		a.log.WithField("crawl", ac.cc.CrawlID).Info("crawl stopped, progress kept in the frontier")
	default:
		a.log.WithField("crawl", ac.cc.CrawlID).Errorf("crawl halted: %v", err)
	}
}

// StopCrawl cancels the crawl's current run. Visited pages stay visited and
// dispatched paths are reclaimed on the next run, so stopping loses nothing.
func (a *App) StopCrawl(crawlID string) error {
	a.crawlsMutex.RLock()
	ac, exists := a.activeCrawls[crawlID]
	a.crawlsMutex.RUnlock()
	if !exists {
		return fmt.Errorf("no active crawl found for %s", crawlID)
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	if !ac.running {
		return fmt.Errorf("crawl %s is not running", crawlID)
	}
	ac.cancel()
	return nil
}

// ResumeCrawl restarts a stopped or failed crawl. The frontier still holds
// everything the previous run learned, so execution picks up exactly where
// it halted.
func (a *App) ResumeCrawl(ctx context.Context, crawlID string) error {
	a.crawlsMutex.RLock()
	ac, exists := a.activeCrawls[crawlID]
	a.crawlsMutex.RUnlock()
	if !exists {
		return fmt.Errorf("no crawl found for %s in this process", crawlID)
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.running {
		return fmt.Errorf("crawl %s is already running", crawlID)
	}

	if _, err := a.frontier.Stats(ctx, ac.cc.FrontierID); err != nil {
		if errors.Is(err, storage.ErrFrontierNotFound) {
			return fmt.Errorf("crawl %s already completed", crawlID)
		}
		return fmt.Errorf("failed to check frontier: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	ac.cancel = cancel
	ac.done = make(chan struct{})
	ac.err = nil
	ac.running = true
	go a.drive(runCtx, ac)
	return nil
}

// Wait blocks until the crawl's current run stops and returns the error it
// stopped with. An unknown crawl id returns nil, matching a crawl that
// finished and was forgotten.
func (a *App) Wait(crawlID string) error {
	a.crawlsMutex.RLock()
	ac, exists := a.activeCrawls[crawlID]
	a.crawlsMutex.RUnlock()
	if !exists {
		return nil
	}

	ac.mu.Lock()
	done := ac.done
	ac.mu.Unlock()
	<-done

	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.err
}

// CheckBrowser verifies a Chrome or Chromium binary is reachable before a
// crawl tries to launch one. Deployments that inject their own
// BrowserFactory do not need it.
func CheckBrowser() error {
	if path, ok := findChromeExecutable(); ok {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	return errors.New("no Chrome or Chromium binary found; install Chrome or set CHROME_EXECUTABLE_PATH")
}

// findChromeExecutable looks for Chrome in the conventional install
// locations for the current OS, then falls back to PATH.
func findChromeExecutable() (string, bool) {
	if custom := os.Getenv("CHROME_EXECUTABLE_PATH"); custom != "" {
		return custom, true
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			os.Getenv("HOME") + "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	case "windows":
		candidates = []string{
			os.Getenv("ProgramFiles") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("ProgramFiles(x86)") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("LocalAppData") + "\\Google\\Chrome\\Application\\chrome.exe",
		}
	case "linux":
		candidates = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}
