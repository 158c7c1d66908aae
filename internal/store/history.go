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

// Put stores the lifecycle record at crawl start. Re-putting the same crawl
// id leaves the existing record untouched so a retried start step never
// resets the start timestamp.
func (s *Store) Put(ctx context.Context, rec storage.HistoryRecord) error {
	record := CrawlRecord{
		CrawlID:      rec.CrawlID,
		Name:         rec.Name,
		BaseURL:      rec.BaseURL,
		StartedAt:    rec.StartedAt.UnixMilli(),
		PagesCrawled: rec.PagesCrawled,
	}
	if rec.Finished() {
		record.EndedAt = rec.EndedAt.UnixMilli()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "crawl_id"}},
		DoNothing: true,
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to create crawl record: %v", err)
	}
	return nil
}

// Finalize sets the end timestamp and pages-crawled count, once. The guarded
// update only matches records whose end is still unset, so a retried
// completion step is a no-op.
func (s *Store) Finalize(ctx context.Context, crawlID string, endedAt time.Time, pagesCrawled int64) error {
	res := s.db.WithContext(ctx).Model(&CrawlRecord{}).
		Where("crawl_id = ? AND ended_at = 0", crawlID).
		Updates(map[string]interface{}{
			"ended_at":      endedAt.UnixMilli(),
			"pages_crawled": pagesCrawled,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finalize crawl record: %v", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the record is already finalized or it never
	// existed. Only the latter is an error.
	if _, err := s.Get(ctx, crawlID); err != nil {
		return err
	}
	return nil
}

// Get returns the lifecycle record for the crawl id.
func (s *Store) Get(ctx context.Context, crawlID string) (storage.HistoryRecord, error) {
	var record CrawlRecord
	err := s.db.WithContext(ctx).Where("crawl_id = ?", crawlID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.HistoryRecord{}, storage.ErrCrawlNotFound
		}
		return storage.HistoryRecord{}, fmt.Errorf("failed to get crawl record: %v", err)
	}
	return record.toHistoryRecord(), nil
}

// List returns all lifecycle records, most recently started first.
func (s *Store) List(ctx context.Context) ([]storage.HistoryRecord, error) {
	var records []CrawlRecord
	err := s.db.WithContext(ctx).Order("started_at DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl records: %v", err)
	}

	out := make([]storage.HistoryRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toHistoryRecord())
	}
	return out, nil
}

func (r CrawlRecord) toHistoryRecord() storage.HistoryRecord {
	rec := storage.HistoryRecord{
		CrawlID:      r.CrawlID,
		Name:         r.Name,
		BaseURL:      r.BaseURL,
		StartedAt:    time.UnixMilli(r.StartedAt),
		PagesCrawled: r.PagesCrawled,
	}
	if r.EndedAt != 0 {
		rec.EndedAt = time.UnixMilli(r.EndedAt)
	}
	return rec
}
