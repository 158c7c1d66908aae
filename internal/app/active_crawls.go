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

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentberlin/sidewinder/storage"
)

// CrawlStatus combines a crawl's history record with live frontier counts.
// The frontier counts are zero once the crawl has finished and its frontier
// was destroyed.
type CrawlStatus struct {
	CrawlID      string    `json:"crawlId"`
	Name         string    `json:"name"`
	BaseURL      string    `json:"baseUrl"`
	Running      bool      `json:"running"`
	Finished     bool      `json:"finished"`
	PagesCrawled int64     `json:"pagesCrawled"`
	Queued       int64     `json:"queued"`
	Dispatched   int64     `json:"dispatched"`
	Visited      int64     `json:"visited"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt,omitempty"`
}

// Status reports the crawl's lifecycle record plus frontier counts while the
// crawl is active in this process.
func (a *App) Status(ctx context.Context, crawlID string) (CrawlStatus, error) {
	rec, err := a.history.Get(ctx, crawlID)
	if err != nil {
		return CrawlStatus{}, err
	}
	st := statusFromRecord(rec)

	a.crawlsMutex.RLock()
	ac, active := a.activeCrawls[crawlID]
	a.crawlsMutex.RUnlock()
	if !active {
		return st, nil
	}

	ac.mu.Lock()
	st.Running = ac.running
	ac.mu.Unlock()

	stats, err := a.frontier.Stats(ctx, ac.cc.FrontierID)
	if err != nil {
		// The frontier disappears when the crawl completes between the
		// map lookup and here.
		if errors.Is(err, storage.ErrFrontierNotFound) {
			return st, nil
		}
		return CrawlStatus{}, fmt.Errorf("failed to read frontier stats: %v", err)
	}
	st.Queued = stats.Queued
	st.Dispatched = stats.Dispatched
	st.Visited = stats.Visited
	return st, nil
}

// ListCrawls returns every crawl in history, newest first. Entries carry
// lifecycle fields and the running flag; live frontier counts come from
// Status.
func (a *App) ListCrawls(ctx context.Context) ([]CrawlStatus, error) {
	records, err := a.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl history: %v", err)
	}

	a.crawlsMutex.RLock()
	defer a.crawlsMutex.RUnlock()

	statuses := make([]CrawlStatus, 0, len(records))
	for _, rec := range records {
		st := statusFromRecord(rec)
		if ac, active := a.activeCrawls[rec.CrawlID]; active {
			ac.mu.Lock()
			st.Running = ac.running
			ac.mu.Unlock()
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func statusFromRecord(rec storage.HistoryRecord) CrawlStatus {
	return CrawlStatus{
		CrawlID:      rec.CrawlID,
		Name:         rec.Name,
		BaseURL:      rec.BaseURL,
		Finished:     rec.Finished(),
		PagesCrawled: rec.PagesCrawled,
		StartedAt:    rec.StartedAt,
		EndedAt:      rec.EndedAt,
	}
}
