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

package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryHistory keeps crawl records in process memory.
type InMemoryHistory struct {
	mu      sync.RWMutex
	records map[string]HistoryRecord
}

// NewInMemoryHistory returns an empty in-memory history recorder.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{records: make(map[string]HistoryRecord)}
}

// Put implements History.Put. An existing record is left untouched.
func (h *InMemoryHistory) Put(ctx context.Context, rec HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.records[rec.CrawlID]; exists {
		return nil
	}
	h.records[rec.CrawlID] = rec
	return nil
}

// Finalize implements History.Finalize. The end timestamp is set once; later
// calls leave the record unchanged.
func (h *InMemoryHistory) Finalize(ctx context.Context, crawlID string, endedAt time.Time, pagesCrawled int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, exists := h.records[crawlID]
	if !exists {
		return ErrCrawlNotFound
	}
	if rec.Finished() {
		return nil
	}
	rec.EndedAt = endedAt
	rec.PagesCrawled = pagesCrawled
	h.records[crawlID] = rec
	return nil
}

// Get implements History.Get.
func (h *InMemoryHistory) Get(ctx context.Context, crawlID string) (HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, exists := h.records[crawlID]
	if !exists {
		return HistoryRecord{}, ErrCrawlNotFound
	}
	return rec, nil
}

// List implements History.List.
func (h *InMemoryHistory) List(ctx context.Context) ([]HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	records := make([]HistoryRecord, 0, len(h.records))
	for _, rec := range h.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}
