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
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/agentberlin/sidewinder/storage"
)

// ErrFrontierStalled is returned when the frontier counts unvisited paths
// but none can be dequeued or reclaimed. A healthy frontier never reaches
// this state; it indicates an inconsistent backend.
var ErrFrontierStalled = errors.New("frontier has unvisited paths but none are claimable")

// Decision is what an execution reports to the engine that invoked it.
type Decision int

const (
	// DecisionContinue asks the engine to start a fresh execution with the
	// same CrawlContext. All progress lives in the frontier, so the new
	// execution resumes exactly where this one stopped.
	DecisionContinue Decision = iota
	// DecisionDone means the frontier is drained and the crawl can complete.
	DecisionDone
)

func (d Decision) String() string {
	if d == DecisionDone {
		return "done"
	}
	return "continue"
}

// Orchestrator is the step-budgeted crawl state machine. It never counts the
// engine's recorded steps itself; it reports continue or done after each
// crawl loop and leaves ceiling enforcement to the engine.
type Orchestrator struct {
	cfg       *Config
	frontier  storage.Frontier
	history   storage.History
	browser   Browser
	extractor *Extractor
	events    EventSink
	log       *logrus.Entry
}

// NewOrchestrator wires the crawl state machine. A nil sink disables events.
func NewOrchestrator(cfg *Config, frontier storage.Frontier, history storage.History, browser Browser, extractor *Extractor, events EventSink, log *logrus.Entry) *Orchestrator {
	if events == nil {
		events = NoOpSink{}
	}
	return &Orchestrator{
		cfg:       cfg,
		frontier:  frontier,
		history:   history,
		browser:   browser,
		extractor: extractor,
		events:    events,
		log:       log,
	}
}

// StartCrawl validates the config, creates the history record and the
// frontier, and seeds the frontier with the root path of the base URL. The
// returned CrawlContext is passed by value to every later step and never
// mutated.
func (o *Orchestrator) StartCrawl(ctx context.Context) (CrawlContext, error) {
	if err := o.cfg.Validate(); err != nil {
		return CrawlContext{}, err
	}

	cc := CrawlContext{
		CrawlID:    uuid.New().String(),
		CrawlName:  o.cfg.CrawlName,
		BaseURL:    o.cfg.BaseURL,
		Keywords:   o.cfg.PathKeywords,
		FrontierID: uuid.New().String(),
		StartedAt:  time.Now(),
	}

	record := storage.HistoryRecord{
		CrawlID:   cc.CrawlID,
		Name:      cc.CrawlName,
		BaseURL:   cc.BaseURL,
		StartedAt: cc.StartedAt,
	}
	if err := o.history.Put(ctx, record); err != nil {
		return CrawlContext{}, fmt.Errorf("failed to record crawl start: %v", err)
	}

	if err := o.frontier.Create(ctx, cc.FrontierID); err != nil {
		return CrawlContext{}, fmt.Errorf("failed to create frontier: %v", err)
	}

	rootPath, err := reduceToPath(cc.BaseURL)
	if err != nil {
		return CrawlContext{}, fmt.Errorf("failed to derive root path: %v", err)
	}
	if err := o.frontier.Enqueue(ctx, cc.FrontierID, []string{rootPath}); err != nil {
		return CrawlContext{}, fmt.Errorf("failed to seed frontier: %v", err)
	}

	o.log.WithFields(logrus.Fields{
		"crawl": cc.CrawlID,
		"base":  cc.BaseURL,
	}).Info("crawl started")
	o.events.Emit(Event{
		Type:      EventCrawlStarted,
		CrawlID:   cc.CrawlID,
		CrawlName: cc.CrawlName,
		Timestamp: time.Now(),
	})
	return cc, nil
}

// ReadQueuedURLs claims the next batch of queued paths, at most
// ParallelURLsToSync of them, marking each dispatched so a concurrent or
// retried execution never receives the same path.
func (o *Orchestrator) ReadQueuedURLs(ctx context.Context, cc CrawlContext) ([]string, error) {
	return o.frontier.DequeueBatch(ctx, cc.FrontierID, o.cfg.ParallelURLsToSync)
}

// CrawlPageAndQueueURLs processes one dispatched path: records the visit,
// extracts the page, persists its content, and enqueues the discovered
// links. The visit is durable before the fetch starts, so a retry of this
// step never refetches the page. Page-level failures are logged and skipped;
// only storage failures propagate.
func (o *Orchestrator) CrawlPageAndQueueURLs(ctx context.Context, cc CrawlContext, path string) error {
	already, err := o.frontier.MarkVisited(ctx, cc.FrontierID, path)
	if err != nil {
		return fmt.Errorf("failed to mark %q visited: %v", path, err)
	}
	if already {
		return nil
	}

	pageURL, err := resolveAgainstBase(cc.BaseURL, path)
	if err != nil {
		o.pageFailed(cc, path, err)
		return nil
	}

	session, err := o.browser.Open(ctx)
	if err != nil {
		o.pageFailed(cc, path, err)
		return nil
	}
	defer session.Close()

	content, err := o.extractor.Extract(ctx, session, pageURL)
	if err != nil {
		o.pageFailed(cc, path, err)
		return nil
	}

	if err := o.extractor.Persist(ctx, cc.CrawlName, content); err != nil {
		return err
	}

	links, err := o.extractor.DiscoverLinks(ctx, session)
	if err != nil {
		o.pageFailed(cc, path, err)
		return nil
	}
	if len(links) > 0 {
		if err := o.frontier.Enqueue(ctx, cc.FrontierID, links); err != nil {
			return fmt.Errorf("failed to enqueue discovered links: %v", err)
		}
	}

	o.events.Emit(Event{
		Type:      EventPageCrawled,
		CrawlID:   cc.CrawlID,
		CrawlName: cc.CrawlName,
		Path:      path,
		Timestamp: time.Now(),
	})
	return nil
}

// RunExecution drives the crawl loop for one bounded execution: dequeue a
// batch, extract all its pages concurrently, then decide whether to loop,
// hand off to a fresh execution, or report the frontier drained.
func (o *Orchestrator) RunExecution(ctx context.Context, cc CrawlContext) (Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return DecisionContinue, err
		}

		paths, err := o.ReadQueuedURLs(ctx, cc)
		if err != nil {
			return DecisionContinue, fmt.Errorf("failed to read queued URLs: %v", err)
		}

		if len(paths) == 0 {
			remaining, err := o.frontier.RemainingCount(ctx, cc.FrontierID)
			if err != nil {
				return DecisionContinue, err
			}
			if remaining == 0 {
				return DecisionDone, nil
			}
			// Paths stuck in dispatched belong to an execution that died
			// between dequeueing and marking visited. Reclaim and retry them.
			moved, err := o.frontier.RequeueDispatched(ctx, cc.FrontierID)
			if err != nil {
				return DecisionContinue, err
			}
			if moved == 0 {
				return DecisionContinue, ErrFrontierStalled
			}
			o.log.WithFields(logrus.Fields{
				"crawl": cc.CrawlID,
				"paths": moved,
			}).Warn("reclaimed paths from a dead execution")
			continue
		}

		// Siblings are not cancelled when one page step fails its storage
		// writes: a cancelled step would leave its path dispatched but
		// never visited, unreachable by any later dequeue.
		var g errgroup.Group
		g.SetLimit(o.cfg.ParallelURLsToSync)
		for _, path := range paths {
			g.Go(func() error {
				return o.crawlWithRetry(ctx, cc, path)
			})
		}
		if err := g.Wait(); err != nil {
			return DecisionContinue, err
		}
		if err := ctx.Err(); err != nil {
			return DecisionContinue, err
		}

		remaining, err := o.frontier.RemainingCount(ctx, cc.FrontierID)
		if err != nil {
			return DecisionContinue, err
		}
		if remaining == 0 {
			return DecisionDone, nil
		}
		if o.projectedSteps(remaining) > int64(o.cfg.StateMachineURLThreshold) {
			return DecisionContinue, nil
		}
	}
}

// ContinueExecution records the handoff to a fresh execution. The engine
// performs the actual restart; from the orchestrator's side the frontier
// already holds all progress.
func (o *Orchestrator) ContinueExecution(ctx context.Context, cc CrawlContext) error {
	o.log.WithField("crawl", cc.CrawlID).Info("continuing crawl in a fresh execution")
	o.events.Emit(Event{
		Type:      EventCrawlContinued,
		CrawlID:   cc.CrawlID,
		CrawlName: cc.CrawlName,
		Timestamp: time.Now(),
	})
	return nil
}

// CompleteCrawl finalizes the history record and destroys the frontier.
// History is finalized first: the page count comes from frontier stats, and
// a retry after a crash between the two calls finds the count already
// recorded and only the destroy left to redo.
func (o *Orchestrator) CompleteCrawl(ctx context.Context, cc CrawlContext) error {
	stats, err := o.frontier.Stats(ctx, cc.FrontierID)
	if err != nil {
		if errors.Is(err, storage.ErrFrontierNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read frontier stats: %v", err)
	}

	if err := o.history.Finalize(ctx, cc.CrawlID, time.Now(), stats.Visited); err != nil {
		return fmt.Errorf("failed to finalize crawl record: %v", err)
	}

	if err := o.frontier.Destroy(ctx, cc.FrontierID); err != nil && !errors.Is(err, storage.ErrFrontierNotFound) {
		return fmt.Errorf("failed to destroy frontier: %v", err)
	}

	o.log.WithFields(logrus.Fields{
		"crawl": cc.CrawlID,
		"pages": stats.Visited,
	}).Info("crawl completed")
	o.events.Emit(Event{
		Type:      EventCrawlCompleted,
		CrawlID:   cc.CrawlID,
		CrawlName: cc.CrawlName,
		Timestamp: time.Now(),
	})
	return nil
}

// Storage failures inside a page step are retried with the same path, the
// way the hosted engine re-invokes a failed step with its recorded
// arguments. Page-level failures never reach this loop; CrawlPageAndQueueURLs
// swallows them.
const (
	stepAttempts = 3
	stepBackoff  = 250 * time.Millisecond
)

func (o *Orchestrator) crawlWithRetry(ctx context.Context, cc CrawlContext, path string) error {
	var err error
	for attempt := 1; attempt <= stepAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * stepBackoff):
			}
			o.log.WithFields(logrus.Fields{
				"crawl": cc.CrawlID,
				"path":  path,
			}).Warnf("retrying page step (attempt %d): %v", attempt, err)
		}
		if err = o.CrawlPageAndQueueURLs(ctx, cc, path); err == nil {
			return nil
		}
	}
	return err
}

func (o *Orchestrator) pageFailed(cc CrawlContext, path string, err error) {
	o.log.WithFields(logrus.Fields{
		"crawl": cc.CrawlID,
		"path":  path,
	}).Warnf("page skipped: %v", err)
	o.events.Emit(Event{
		Type:      EventPageFailed,
		CrawlID:   cc.CrawlID,
		CrawlName: cc.CrawlName,
		Path:      path,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// projectedSteps estimates how many more crawl loops the remaining frontier
// needs at the configured fan-out.
func (o *Orchestrator) projectedSteps(remaining int64) int64 {
	parallel := int64(o.cfg.ParallelURLsToSync)
	return (remaining + parallel - 1) / parallel
}
