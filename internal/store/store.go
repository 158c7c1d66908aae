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

// Package store provides the SQLite-backed frontier and crawl history. The
// frontier rows are the durable state that lets a crawl halt under a step
// ceiling and resume in a fresh execution without losing or repeating work.
package store

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store holds the database handle shared by the frontier and history APIs.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database at the default location,
// ~/.sidewinder/sidewinder.db.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".sidewinder")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return NewStoreAtPath(filepath.Join(dbDir, "sidewinder.db"))
}

// NewStoreAtPath opens (or creates) the database at the given path. The
// parent directory must exist.
func NewStoreAtPath(dbPath string) (*Store, error) {
	dbDir := filepath.Dir(dbPath)
	if _, err := os.Stat(dbDir); err != nil {
		return nil, fmt.Errorf("database directory does not exist: %s, error: %v", dbDir, err)
	}

	// WAL mode enables concurrent reads and writes; busy_timeout prevents
	// immediate "database is locked" errors when batch workers contend.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000000000", dbPath)

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := database.AutoMigrate(&FrontierMeta{}, &FrontierEntry{}, &CrawlRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	// Unique constraint on (CrawlID, Path): the frontier is a set, so a path
	// can exist at most once per crawl regardless of how often it is enqueued.
	if err := database.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_frontier_crawl_path ON frontier_entries(crawl_id, path)").Error; err != nil {
		return nil, fmt.Errorf("failed to create frontier unique index: %v", err)
	}

	return &Store{db: database}, nil
}

// DB returns the underlying GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// hashPath returns the FNV-1a hash of a path as int64, the form SQLite
// stores without loss.
func hashPath(path string) int64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return int64(h.Sum64())
}
