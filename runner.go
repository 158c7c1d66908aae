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

	"github.com/sirupsen/logrus"
)

// Runner is the local execution engine. A hosted engine re-invokes the
// orchestrator in a fresh bounded execution whenever it reports continue;
// the runner plays that role in-process, restarting the crawl loop with the
// same CrawlContext until the frontier drains.
type Runner struct {
	orch *Orchestrator
	log  *logrus.Entry
}

// NewRunner returns a runner driving the given orchestrator.
func NewRunner(orch *Orchestrator, log *logrus.Entry) *Runner {
	return &Runner{orch: orch, log: log}
}

// Run performs a whole crawl: start, execute until done, complete. The
// returned CrawlContext identifies the finished crawl's history record.
func (r *Runner) Run(ctx context.Context) (CrawlContext, error) {
	cc, err := r.orch.StartCrawl(ctx)
	if err != nil {
		return CrawlContext{}, err
	}
	if err := r.Resume(ctx, cc); err != nil {
		return cc, err
	}
	return cc, nil
}

// Resume drives an already-started crawl to completion. All progress lives
// in the frontier, so resuming is indistinguishable from the first
// execution: dequeue, extract, re-evaluate.
func (r *Runner) Resume(ctx context.Context, cc CrawlContext) error {
	for execution := 1; ; execution++ {
		decision, err := r.orch.RunExecution(ctx, cc)
		if err != nil {
			return err
		}
		if decision == DecisionDone {
			break
		}
		if err := r.orch.ContinueExecution(ctx, cc); err != nil {
			return err
		}
		r.log.WithFields(logrus.Fields{
			"crawl":     cc.CrawlID,
			"execution": execution + 1,
		}).Debug("starting fresh execution")
	}

	return r.orch.CompleteCrawl(ctx, cc)
}
