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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentberlin/sidewinder/storage"
)

// Create initializes an empty frontier for the crawl id. It fails with
// storage.ErrFrontierExists when the frontier was already created, which is
// how a duplicated start step is surfaced to the scheduler.
func (s *Store) Create(ctx context.Context, crawlID string) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "crawl_id"}},
		DoNothing: true,
	}).Create(&FrontierMeta{CrawlID: crawlID})
	if res.Error != nil {
		return fmt.Errorf("failed to create frontier: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrFrontierExists
	}
	return nil
}

// MarkVisited records the path as visited and reports whether it already was.
// The write is durable before return, so a step retried after a crash sees
// already-visited and skips the refetch.
func (s *Store) MarkVisited(ctx context.Context, crawlID, path string) (bool, error) {
	if err := s.frontierExists(ctx, crawlID); err != nil {
		return false, err
	}

	var entry FrontierEntry
	err := s.db.WithContext(ctx).
		Where("crawl_id = ? AND path_hash = ? AND path = ?", crawlID, hashPath(path), path).
		First(&entry).Error
	if err == nil && entry.State == StateVisited {
		return true, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up frontier entry: %v", err)
	}

	// Upsert: flip an existing row to visited, or insert the path directly as
	// visited when it was never enqueued (the seed path takes this route).
	visited := FrontierEntry{
		CrawlID:  crawlID,
		Path:     path,
		PathHash: hashPath(path),
		State:    StateVisited,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "crawl_id"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&visited).Error
	if err != nil {
		return false, fmt.Errorf("failed to mark path visited: %v", err)
	}
	return false, nil
}

// Enqueue inserts paths as queued. Paths already present in any state are
// left untouched, so visited paths are never reintroduced and overlapping
// calls are safe.
func (s *Store) Enqueue(ctx context.Context, crawlID string, paths []string) error {
	if err := s.frontierExists(ctx, crawlID); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	entries := make([]FrontierEntry, 0, len(paths))
	for _, path := range paths {
		entries = append(entries, FrontierEntry{
			CrawlID:  crawlID,
			Path:     path,
			PathHash: hashPath(path),
			State:    StateQueued,
		})
	}

	// SQLite has a limit on SQL variables (typically 999).
	// FrontierEntry has ~7 columns, so a batch size of 100 is safe.
	const batchSize = 100

	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[i:end]

		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "crawl_id"}, {Name: "path"}},
			DoNothing: true,
		}).Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to enqueue paths: %v", err)
		}
	}

	return nil
}

// DequeueBatch atomically claims up to limit queued paths, flipping them to
// dispatched. The claim runs as a single statement so concurrent callers can
// never receive the same path twice.
func (s *Store) DequeueBatch(ctx context.Context, crawlID string, limit int) ([]string, error) {
	if err := s.frontierExists(ctx, crawlID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	var paths []string
	err := s.db.WithContext(ctx).Raw(
		`UPDATE frontier_entries SET state = ?, updated_at = ?
		 WHERE id IN (
		         SELECT id FROM frontier_entries
		         WHERE crawl_id = ? AND state = ?
		         ORDER BY id ASC LIMIT ?
		 )
		 RETURNING path`,
		StateDispatched, time.Now().Unix(), crawlID, StateQueued, limit,
	).Scan(&paths).Error
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue batch: %v", err)
	}
	return paths, nil
}

// RequeueDispatched flips every dispatched path back to queued so a fresh
// execution can reclaim the batch a dead one never finished.
func (s *Store) RequeueDispatched(ctx context.Context, crawlID string) (int64, error) {
	if err := s.frontierExists(ctx, crawlID); err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).Model(&FrontierEntry{}).
		Where("crawl_id = ? AND state = ?", crawlID, StateDispatched).
		Updates(map[string]interface{}{"state": StateQueued, "updated_at": time.Now().Unix()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to requeue dispatched paths: %v", res.Error)
	}
	return res.RowsAffected, nil
}

// RemainingCount returns the number of queued plus dispatched paths.
func (s *Store) RemainingCount(ctx context.Context, crawlID string) (int64, error) {
	if err := s.frontierExists(ctx, crawlID); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&FrontierEntry{}).
		Where("crawl_id = ? AND state != ?", crawlID, StateVisited).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count remaining paths: %v", err)
	}
	return count, nil
}

// Stats returns per-state counts for the crawl's frontier.
func (s *Store) Stats(ctx context.Context, crawlID string) (storage.FrontierStats, error) {
	if err := s.frontierExists(ctx, crawlID); err != nil {
		return storage.FrontierStats{}, err
	}

	var stats storage.FrontierStats
	for state, target := range map[string]*int64{
		StateQueued:     &stats.Queued,
		StateDispatched: &stats.Dispatched,
		StateVisited:    &stats.Visited,
	} {
		err := s.db.WithContext(ctx).Model(&FrontierEntry{}).
			Where("crawl_id = ? AND state = ?", crawlID, state).
			Count(target).Error
		if err != nil {
			return storage.FrontierStats{}, fmt.Errorf("failed to count %s paths: %v", state, err)
		}
	}
	return stats, nil
}

// Destroy releases all frontier rows for the crawl. It refuses to run while
// unvisited paths remain; a crawl's frontier is torn down exactly once, after
// the queue has drained.
func (s *Store) Destroy(ctx context.Context, crawlID string) error {
	remaining, err := s.RemainingCount(ctx, crawlID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return storage.ErrFrontierNotDrained
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crawl_id = ?", crawlID).Delete(&FrontierEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("crawl_id = ?", crawlID).Delete(&FrontierMeta{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to destroy frontier: %v", err)
	}
	return nil
}

// frontierExists maps a missing marker row to storage.ErrFrontierNotFound.
func (s *Store) frontierExists(ctx context.Context, crawlID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&FrontierMeta{}).
		Where("crawl_id = ?", crawlID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check frontier existence: %v", err)
	}
	if count == 0 {
		return storage.ErrFrontierNotFound
	}
	return nil
}
