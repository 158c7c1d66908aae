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

// Package storage defines the persistence contracts a crawl runs against:
// the frontier (the deduplicated queue plus visited set shared by every
// execution of a crawl), the history recorder, and the blob store for
// extracted page content. In-memory implementations of the frontier and
// history live here as well; the durable SQLite and Redis backends are in
// internal/store and the filesystem/S3 blob backends in internal/blob.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFrontierExists is returned by Create when a frontier was already
	// created for the crawl id.
	ErrFrontierExists = errors.New("frontier already exists for crawl")

	// ErrFrontierNotFound is returned when no frontier exists for the crawl id.
	ErrFrontierNotFound = errors.New("frontier not found")

	// ErrFrontierNotDrained is returned by Destroy while paths are still
	// queued or dispatched.
	ErrFrontierNotDrained = errors.New("frontier still has unvisited paths")

	// ErrCrawlNotFound is returned when no history record exists for the
	// crawl id.
	ErrCrawlNotFound = errors.New("crawl record not found")
)

// FrontierStats is a point-in-time count of the frontier's path states.
type FrontierStats struct {
	Queued     int64
	Dispatched int64
	Visited    int64
}

// Remaining is the number of paths not yet visited.
func (s FrontierStats) Remaining() int64 {
	return s.Queued + s.Dispatched
}

// Frontier is the durable, concurrency-safe queue-plus-visited-set scoped to
// one crawl id. All progress of a crawl lives here, which is what lets an
// execution halt under a step ceiling and a fresh execution resume exactly.
// Every operation must stay correct when the surrounding scheduler re-invokes
// a step after partial failure, so repeated calls never corrupt dedup state.
type Frontier interface {
	// Create initializes an empty frontier for the crawl id. It fails with
	// ErrFrontierExists if called twice for the same id.
	Create(ctx context.Context, crawlID string) error

	// MarkVisited records the path as visited before any fetch is attempted
	// against it. It reports true if the path was already visited, so a
	// retried step can skip refetching. Marking twice is a no-op.
	MarkVisited(ctx context.Context, crawlID, path string) (bool, error)

	// Enqueue inserts the paths that are not already present in any state.
	// Duplicate and overlapping calls are safe; visited paths are never
	// reintroduced.
	Enqueue(ctx context.Context, crawlID string, paths []string) error

	// DequeueBatch returns up to limit queued paths, atomically marking them
	// dispatched so concurrent callers never receive the same path twice.
	DequeueBatch(ctx context.Context, crawlID string, limit int) ([]string, error)

	// RequeueDispatched moves every dispatched path back to queued and
	// reports how many moved. An execution that dies between dequeueing a
	// batch and marking it visited strands those paths in dispatched; the
	// next execution reclaims them with this before giving up on the crawl.
	RequeueDispatched(ctx context.Context, crawlID string) (int64, error)

	// RemainingCount is the number of queued plus dispatched paths. It drives
	// the continuation decision.
	RemainingCount(ctx context.Context, crawlID string) (int64, error)

	// Stats returns per-state counts for status reporting.
	Stats(ctx context.Context, crawlID string) (FrontierStats, error)

	// Destroy releases all storage held for the crawl. It fails with
	// ErrFrontierNotDrained unless RemainingCount is zero.
	Destroy(ctx context.Context, crawlID string) error
}

// HistoryRecord tracks the lifecycle of one crawl. EndedAt stays zero until
// the crawl completes and is set exactly once.
type HistoryRecord struct {
	CrawlID      string
	Name         string
	BaseURL      string
	StartedAt    time.Time
	EndedAt      time.Time
	PagesCrawled int64
}

// Finished reports whether the record has been finalized.
func (r HistoryRecord) Finished() bool {
	return !r.EndedAt.IsZero()
}

// History records crawl lifecycle timestamps, one record per crawl id. The
// record outlives the frontier.
type History interface {
	// Put stores the record at crawl start. Re-putting an existing crawl id
	// is a no-op so a retried start step stays safe.
	Put(ctx context.Context, rec HistoryRecord) error

	// Finalize sets the end timestamp and the pages-crawled count. The end
	// timestamp is written once; finalizing an already finalized record is a
	// no-op.
	Finalize(ctx context.Context, crawlID string, endedAt time.Time, pagesCrawled int64) error

	// Get returns the record for the crawl id, or ErrCrawlNotFound.
	Get(ctx context.Context, crawlID string) (HistoryRecord, error)

	// List returns all records, most recently started first.
	List(ctx context.Context) ([]HistoryRecord, error)
}

// Blobs stores extracted page content. Keys are slash-separated, prefixed
// with the crawl name.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) error
}
