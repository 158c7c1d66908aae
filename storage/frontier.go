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
	"sync"
)

type pathState uint8

const (
	stateQueued pathState = iota
	stateDispatched
	stateVisited
)

// memFrontier holds one crawl's paths. order preserves enqueue order so
// dequeues walk the frontier breadth-first, though callers must not rely on
// ordering for correctness.
type memFrontier struct {
	states map[string]pathState
	order  []string
}

// InMemoryFrontier keeps frontier state in process memory. It is the default
// for tests and single-process runs; it satisfies the same atomicity contract
// as the durable backends but does not survive a restart.
type InMemoryFrontier struct {
	mu     sync.Mutex
	crawls map[string]*memFrontier
}

// NewInMemoryFrontier returns an empty in-memory frontier.
func NewInMemoryFrontier() *InMemoryFrontier {
	return &InMemoryFrontier{crawls: make(map[string]*memFrontier)}
}

// Create implements Frontier.Create.
func (f *InMemoryFrontier) Create(ctx context.Context, crawlID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.crawls[crawlID]; exists {
		return ErrFrontierExists
	}
	f.crawls[crawlID] = &memFrontier{states: make(map[string]pathState)}
	return nil
}

// MarkVisited implements Frontier.MarkVisited. It reports true if the path
// was already visited.
func (f *InMemoryFrontier) MarkVisited(ctx context.Context, crawlID, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, err := f.get(crawlID)
	if err != nil {
		return false, err
	}
	if state, exists := fr.states[path]; exists && state == stateVisited {
		return true, nil
	}
	fr.states[path] = stateVisited
	return false, nil
}

// Enqueue implements Frontier.Enqueue. Paths already present in any state are
// skipped, so visited paths never re-enter the queue.
func (f *InMemoryFrontier) Enqueue(ctx context.Context, crawlID string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, err := f.get(crawlID)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if _, exists := fr.states[path]; exists {
			continue
		}
		fr.states[path] = stateQueued
		fr.order = append(fr.order, path)
	}
	return nil
}

// DequeueBatch implements Frontier.DequeueBatch.
func (f *InMemoryFrontier) DequeueBatch(ctx context.Context, crawlID string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, err := f.get(crawlID)
	if err != nil {
		return nil, err
	}
	var batch []string
	for _, path := range fr.order {
		if len(batch) >= limit {
			break
		}
		if fr.states[path] != stateQueued {
			continue
		}
		fr.states[path] = stateDispatched
		batch = append(batch, path)
	}
	return batch, nil
}

// RequeueDispatched implements Frontier.RequeueDispatched.
func (f *InMemoryFrontier) RequeueDispatched(ctx context.Context, crawlID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, err := f.get(crawlID)
	if err != nil {
		return 0, err
	}
	var moved int64
	for path, state := range fr.states {
		if state == stateDispatched {
			fr.states[path] = stateQueued
			moved++
		}
	}
	return moved, nil
}

// RemainingCount implements Frontier.RemainingCount.
func (f *InMemoryFrontier) RemainingCount(ctx context.Context, crawlID string) (int64, error) {
	stats, err := f.Stats(ctx, crawlID)
	if err != nil {
		return 0, err
	}
	return stats.Remaining(), nil
}

// Stats implements Frontier.Stats.
func (f *InMemoryFrontier) Stats(ctx context.Context, crawlID string) (FrontierStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, err := f.get(crawlID)
	if err != nil {
		return FrontierStats{}, err
	}
	var stats FrontierStats
	for _, state := range fr.states {
		switch state {
		case stateQueued:
			stats.Queued++
		case stateDispatched:
			stats.Dispatched++
		case stateVisited:
			stats.Visited++
		}
	}
	return stats, nil
}

// Destroy implements Frontier.Destroy.
func (f *InMemoryFrontier) Destroy(ctx context.Context, crawlID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, err := f.get(crawlID)
	if err != nil {
		return err
	}
	for _, state := range fr.states {
		if state != stateVisited {
			return ErrFrontierNotDrained
		}
	}
	delete(f.crawls, crawlID)
	return nil
}

func (f *InMemoryFrontier) get(crawlID string) (*memFrontier, error) {
	fr, exists := f.crawls[crawlID]
	if exists {
		return fr, nil
	}
	return nil, ErrFrontierNotFound
}
