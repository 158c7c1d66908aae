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
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/agentberlin/sidewinder/storage"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Emit(event Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *captureSink) byType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type failingBlobs struct{}

func (failingBlobs) Put(ctx context.Context, key string, data []byte) error {
	return errors.New("disk full")
}

type testCrawl struct {
	orch     *Orchestrator
	frontier *storage.InMemoryFrontier
	history  *storage.InMemoryHistory
	blobs    *storage.InMemoryBlobs
	sink     *captureSink
}

func newTestCrawl(t *testing.T, cfg *Config, site *fakeSite) *testCrawl {
	t.Helper()
	tc := &testCrawl{
		frontier: storage.NewInMemoryFrontier(),
		history:  storage.NewInMemoryHistory(),
		blobs:    storage.NewInMemoryBlobs(),
		sink:     &captureSink{},
	}
	fetcher := &fakeFetcher{getErr: errors.New("no robots")}
	filter, err := NewLinkFilter(cfg, fetcher)
	if err != nil {
		t.Fatalf("NewLinkFilter failed: %v", err)
	}
	extractor := NewExtractor(filter, fetcher, tc.blobs, quietLogger())
	tc.orch = NewOrchestrator(cfg, tc.frontier, tc.history, &fakeBrowser{site: site}, extractor, tc.sink, quietLogger())
	return tc
}

// threePageSite is the A -> {B, C}, B -> A graph: three pages, one cycle.
func threePageSite() *fakeSite {
	return newFakeSite(map[string]fakePage{
		"https://ex.com/": {
			html:  `<html><head><title>A</title></head><body><p>Page A</p></body></html>`,
			links: []string{"/b", "/c"},
		},
		"https://ex.com/b": {
			html:  `<html><head><title>B</title></head><body><p>Page B</p></body></html>`,
			links: []string{"/"},
		},
		"https://ex.com/c": {
			html: `<html><head><title>C</title></head><body><p>Page C</p></body></html>`,
		},
	})
}

func siteConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.BaseURL = "https://ex.com"
	cfg.CrawlName = "test_crawl"
	return cfg
}

func drain(t *testing.T, tc *testCrawl, cc CrawlContext) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		decision, err := tc.orch.RunExecution(ctx, cc)
		if err != nil {
			t.Fatalf("RunExecution failed: %v", err)
		}
		if decision == DecisionDone {
			return
		}
		if err := tc.orch.ContinueExecution(ctx, cc); err != nil {
			t.Fatalf("ContinueExecution failed: %v", err)
		}
	}
	t.Fatal("crawl did not drain within 100 executions")
}

func TestStartCrawlSeedsRootPath(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	if cc.CrawlID == "" || cc.FrontierID == "" {
		t.Fatal("expected crawl and frontier ids to be assigned")
	}
	if cc.CrawlID == cc.FrontierID {
		t.Error("expected distinct crawl and frontier ids")
	}

	stats, err := tc.frontier.Stats(ctx, cc.FrontierID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Queued != 1 {
		t.Errorf("expected 1 seeded path, got %d", stats.Queued)
	}

	rec, err := tc.history.Get(ctx, cc.CrawlID)
	if err != nil {
		t.Fatalf("history Get failed: %v", err)
	}
	if rec.StartedAt.IsZero() {
		t.Error("expected start timestamp on the history record")
	}
	if rec.Finished() {
		t.Error("expected the record to be unfinished at start")
	}
}

func TestStartCrawlRejectsInvalidConfig(t *testing.T) {
	cfg := siteConfig()
	cfg.BaseURL = ""
	tc := newTestCrawl(t, cfg, threePageSite())

	if _, err := tc.orch.StartCrawl(context.Background()); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}

func TestCrawlVisitsEveryPageExactlyOnce(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	drain(t, tc, cc)

	stats, err := tc.frontier.Stats(ctx, cc.FrontierID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Visited != 3 {
		t.Errorf("expected 3 visited paths, got %d", stats.Visited)
	}
	if stats.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", stats.Remaining())
	}

	if got := len(tc.sink.byType(EventPageCrawled)); got != 3 {
		t.Errorf("expected 3 page:crawled events, got %d", got)
	}

	for _, pageURL := range []string{"https://ex.com/", "https://ex.com/b", "https://ex.com/c"} {
		if _, ok := tc.blobs.Get(BlobKey(cc.CrawlName, pageURL)); !ok {
			t.Errorf("expected stored content for %s", pageURL)
		}
	}
}

func TestCompleteCrawlDestroysFrontierAndFinalizesHistory(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	drain(t, tc, cc)

	if err := tc.orch.CompleteCrawl(ctx, cc); err != nil {
		t.Fatalf("CompleteCrawl failed: %v", err)
	}

	if _, err := tc.frontier.RemainingCount(ctx, cc.FrontierID); !errors.Is(err, storage.ErrFrontierNotFound) {
		t.Errorf("expected the frontier to be destroyed, got %v", err)
	}

	rec, err := tc.history.Get(ctx, cc.CrawlID)
	if err != nil {
		t.Fatalf("history Get failed: %v", err)
	}
	if !rec.Finished() {
		t.Fatal("expected a finalized history record")
	}
	if rec.EndedAt.Before(rec.StartedAt) {
		t.Errorf("end %v precedes start %v", rec.EndedAt, rec.StartedAt)
	}
	if rec.PagesCrawled != 3 {
		t.Errorf("expected 3 pages crawled, got %d", rec.PagesCrawled)
	}
}

func TestCompleteCrawlIsRetrySafe(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	drain(t, tc, cc)

	if err := tc.orch.CompleteCrawl(ctx, cc); err != nil {
		t.Fatalf("first CompleteCrawl failed: %v", err)
	}
	first, err := tc.history.Get(ctx, cc.CrawlID)
	if err != nil {
		t.Fatalf("history Get failed: %v", err)
	}

	if err := tc.orch.CompleteCrawl(ctx, cc); err != nil {
		t.Fatalf("repeated CompleteCrawl failed: %v", err)
	}
	second, err := tc.history.Get(ctx, cc.CrawlID)
	if err != nil {
		t.Fatalf("history Get failed: %v", err)
	}
	if !second.EndedAt.Equal(first.EndedAt) {
		t.Errorf("end timestamp changed on retry: %v vs %v", second.EndedAt, first.EndedAt)
	}
}

func TestPageFailureIsSkippedNotRetried(t *testing.T) {
	site := threePageSite()
	site.pages["https://ex.com/b"] = fakePage{
		navErr: errors.New("net::ERR_CONNECTION_RESET"),
		links:  []string{"/d"},
	}
	tc := newTestCrawl(t, siteConfig(), site)
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	drain(t, tc, cc)

	stats, err := tc.frontier.Stats(ctx, cc.FrontierID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Visited != 3 {
		t.Errorf("expected /, /b and /c visited, got %d paths", stats.Visited)
	}

	// B keeps its visited mark but contributes no content and no links.
	if _, ok := tc.blobs.Get(BlobKey(cc.CrawlName, "https://ex.com/b")); ok {
		t.Error("expected no stored content for the failed page")
	}
	already, err := tc.frontier.MarkVisited(ctx, cc.FrontierID, "/d")
	if err != nil {
		t.Fatalf("MarkVisited failed: %v", err)
	}
	if already {
		t.Error("expected /d to be untouched; the failed page must not contribute links")
	}

	if got := len(tc.sink.byType(EventPageFailed)); got != 1 {
		t.Errorf("expected 1 page:failed event, got %d", got)
	}
}

func TestContinuationTriggeredByProjectedSteps(t *testing.T) {
	pages := map[string]fakePage{}
	var links []string
	for i := 1; i <= 5; i++ {
		path := fmt.Sprintf("/p%d", i)
		links = append(links, path)
		pages["https://ex.com"+path] = fakePage{
			html: fmt.Sprintf(`<html><body>page %d</body></html>`, i),
		}
	}
	pages["https://ex.com/"] = fakePage{
		html:  `<html><body>root</body></html>`,
		links: links,
	}

	cfg := siteConfig()
	cfg.ParallelURLsToSync = 1
	cfg.StateMachineURLThreshold = 1
	tc := newTestCrawl(t, cfg, newFakeSite(pages))
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}

	decision, err := tc.orch.RunExecution(ctx, cc)
	if err != nil {
		t.Fatalf("RunExecution failed: %v", err)
	}
	if decision != DecisionContinue {
		t.Fatalf("expected continue with 5 paths remaining at fan-out 1, got %v", decision)
	}

	drain(t, tc, cc)
	stats, err := tc.frontier.Stats(ctx, cc.FrontierID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Visited != 6 {
		t.Errorf("expected all 6 pages visited after continuations, got %d", stats.Visited)
	}
	if len(tc.sink.byType(EventCrawlContinued)) == 0 {
		t.Error("expected at least one crawl:continued event")
	}
}

func TestRunExecutionReportsDoneOnDrainedFrontier(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	ctx := context.Background()

	cc := CrawlContext{CrawlID: "c1", CrawlName: "test_crawl", BaseURL: "https://ex.com", FrontierID: "f1"}
	if err := tc.frontier.Create(ctx, cc.FrontierID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	decision, err := tc.orch.RunExecution(ctx, cc)
	if err != nil {
		t.Fatalf("RunExecution failed: %v", err)
	}
	if decision != DecisionDone {
		t.Fatalf("expected done for an empty frontier, got %v", decision)
	}
}

func TestCrawlPageSkipsAlreadyVisitedPath(t *testing.T) {
	site := threePageSite()
	tc := newTestCrawl(t, siteConfig(), site)
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	if _, err := tc.frontier.MarkVisited(ctx, cc.FrontierID, "/"); err != nil {
		t.Fatalf("MarkVisited failed: %v", err)
	}

	if err := tc.orch.CrawlPageAndQueueURLs(ctx, cc, "/"); err != nil {
		t.Fatalf("CrawlPageAndQueueURLs failed: %v", err)
	}

	opens, _ := site.sessionBalance()
	if opens != 0 {
		t.Errorf("expected no browser session for an already-visited path, got %d", opens)
	}
	if tc.blobs.Len() != 0 {
		t.Errorf("expected no content writes for an already-visited path, got %d", tc.blobs.Len())
	}
}

func TestSessionsReleasedOnEveryExitPath(t *testing.T) {
	site := threePageSite()
	site.pages["https://ex.com/c"] = fakePage{
		navErr: errors.New("net::ERR_ABORTED"),
	}
	tc := newTestCrawl(t, siteConfig(), site)
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	drain(t, tc, cc)

	opens, closes := site.sessionBalance()
	if opens == 0 {
		t.Fatal("expected sessions to be opened")
	}
	if opens != closes {
		t.Errorf("session leak: %d opened, %d closed", opens, closes)
	}
}

func TestBlobFailurePropagates(t *testing.T) {
	cfg := siteConfig()
	site := threePageSite()
	frontier := storage.NewInMemoryFrontier()
	fetcher := &fakeFetcher{getErr: errors.New("no robots")}
	filter, err := NewLinkFilter(cfg, fetcher)
	if err != nil {
		t.Fatalf("NewLinkFilter failed: %v", err)
	}
	extractor := NewExtractor(filter, fetcher, failingBlobs{}, quietLogger())
	orch := NewOrchestrator(cfg, frontier, storage.NewInMemoryHistory(), &fakeBrowser{site: site}, extractor, nil, quietLogger())
	ctx := context.Background()

	cc, err := orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	paths, err := orch.ReadQueuedURLs(ctx, cc)
	if err != nil {
		t.Fatalf("ReadQueuedURLs failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected the seeded root path, got %v", paths)
	}

	if err := orch.CrawlPageAndQueueURLs(ctx, cc, paths[0]); err == nil {
		t.Fatal("expected a blob store failure to propagate")
	}
}

func TestReadQueuedURLsHonorsFanOutBound(t *testing.T) {
	cfg := siteConfig()
	cfg.ParallelURLsToSync = 2
	tc := newTestCrawl(t, cfg, threePageSite())
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}
	if err := tc.frontier.Enqueue(ctx, cc.FrontierID, []string{"/x", "/y", "/z"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	paths, err := tc.orch.ReadQueuedURLs(ctx, cc)
	if err != nil {
		t.Fatalf("ReadQueuedURLs failed: %v", err)
	}
	if len(paths) > 2 {
		t.Errorf("expected at most 2 paths, got %d", len(paths))
	}
}

func TestRunExecutionReclaimsPathsFromDeadExecution(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	ctx := context.Background()

	cc, err := tc.orch.StartCrawl(ctx)
	if err != nil {
		t.Fatalf("StartCrawl failed: %v", err)
	}

	// Simulate an execution that claimed the seeded batch and died before
	// marking anything visited.
	stranded, err := tc.frontier.DequeueBatch(ctx, cc.FrontierID, 10)
	if err != nil {
		t.Fatalf("DequeueBatch failed: %v", err)
	}
	if len(stranded) != 1 {
		t.Fatalf("expected the seeded path to be claimable, got %v", stranded)
	}

	drain(t, tc, cc)

	stats, err := tc.frontier.Stats(ctx, cc.FrontierID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Visited != 3 {
		t.Errorf("expected the full site crawled after recovery, got %d visited", stats.Visited)
	}
	if stats.Remaining() != 0 {
		t.Errorf("expected no remaining paths, got %d", stats.Remaining())
	}
}

func TestRunnerRunsWholeCrawl(t *testing.T) {
	tc := newTestCrawl(t, siteConfig(), threePageSite())
	runner := NewRunner(tc.orch, quietLogger())

	cc, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec, err := tc.history.Get(context.Background(), cc.CrawlID)
	if err != nil {
		t.Fatalf("history Get failed: %v", err)
	}
	if !rec.Finished() {
		t.Error("expected the crawl to be finalized")
	}
	if rec.PagesCrawled != 3 {
		t.Errorf("expected 3 pages crawled, got %d", rec.PagesCrawled)
	}
	if _, err := tc.frontier.RemainingCount(context.Background(), cc.FrontierID); !errors.Is(err, storage.ErrFrontierNotFound) {
		t.Errorf("expected the frontier to be destroyed, got %v", err)
	}
}
