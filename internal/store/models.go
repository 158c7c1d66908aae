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

// Frontier entry state constants. A path moves queued -> dispatched ->
// visited and never leaves visited.
const (
	StateQueued     = "queued"
	StateDispatched = "dispatched"
	StateVisited    = "visited"
)

// FrontierMeta marks that a frontier exists for a crawl. The row is created
// once at crawl start and deleted when the drained frontier is destroyed, so
// its presence is the "crawl is active" signal.
type FrontierMeta struct {
	ID        uint   `gorm:"primaryKey"`
	CrawlID   string `gorm:"uniqueIndex;not null"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

// TableName returns the table name for FrontierMeta
func (FrontierMeta) TableName() string {
	return "frontiers"
}

// FrontierEntry is one path in a crawl's frontier. Paths are unique per crawl
// (enforced by idx_frontier_crawl_path), which is what makes repeated and
// overlapping enqueues safe.
type FrontierEntry struct {
	ID        uint   `gorm:"primaryKey"`
	CrawlID   string `gorm:"not null;index:idx_frontier_crawl_state"`
	Path      string `gorm:"not null"`
	PathHash  int64  `gorm:"not null;index:idx_frontier_hash"` // Stored as int64 for SQLite compatibility
	State     string `gorm:"not null;default:'queued';index:idx_frontier_crawl_state"`
	CreatedAt int64  `gorm:"autoCreateTime"`
	UpdatedAt int64  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for FrontierEntry
func (FrontierEntry) TableName() string {
	return "frontier_entries"
}

// CrawlRecord is the lifecycle record for one crawl. EndedAt stays zero until
// the crawl completes; it is written exactly once. The record outlives the
// frontier rows.
type CrawlRecord struct {
	ID           uint   `gorm:"primaryKey"`
	CrawlID      string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	BaseURL      string `gorm:"not null"`
	StartedAt    int64  `gorm:"not null"` // unix milliseconds
	EndedAt      int64  `gorm:"not null;default:0"`
	PagesCrawled int64  `gorm:"not null;default:0"`
	CreatedAt    int64  `gorm:"autoCreateTime"`
	UpdatedAt    int64  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for CrawlRecord
func (CrawlRecord) TableName() string {
	return "crawl_records"
}
