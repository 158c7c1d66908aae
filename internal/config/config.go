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

// Package config loads the crawler's YAML configuration file: the crawl
// settings plus the infrastructure drivers (frontier store, blob store,
// event sinks) a deployment selects.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/agentberlin/sidewinder"
)

// Frontier driver names accepted in the configuration file.
const (
	FrontierSQLite = "sqlite"
	FrontierRedis  = "redis"
	FrontierMemory = "memory"
)

// Blob driver names accepted in the configuration file.
const (
	BlobsFS = "fs"
	BlobsS3 = "s3"
)

// Event sink names accepted in the configuration file.
const (
	SinkLog   = "log"
	SinkKafka = "kafka"
)

var (
	// ErrUnknownFrontierDriver is returned for a frontier driver name that is
	// not sqlite, redis or memory.
	ErrUnknownFrontierDriver = errors.New("unknown frontier driver")
	// ErrUnknownBlobDriver is returned for a blob driver name that is not fs
	// or s3.
	ErrUnknownBlobDriver = errors.New("unknown blob driver")
	// ErrUnknownSink is returned for an event sink name that is not log or
	// kafka.
	ErrUnknownSink = errors.New("unknown event sink")
)

// CrawlSection configures the crawl itself. Zero values fall back to the
// defaults of sidewinder.NewDefaultConfig.
type CrawlSection struct {
	// BaseURL is the absolute URL the crawl starts from.
	BaseURL string `yaml:"baseUrl"`

	// Name prefixes every blob key written by the crawl.
	Name string `yaml:"name"`

	// Keywords restricts discovered links to those containing at least one
	// keyword (case-insensitive). Empty follows every same-site link.
	Keywords []string `yaml:"keywords,omitempty"`

	// ParallelURLsToSync is the number of pages extracted concurrently per
	// crawl step.
	ParallelURLsToSync int `yaml:"parallelUrlsToSync,omitempty"`

	// StateMachineURLThreshold is the projected-steps ceiling above which one
	// execution hands off to a fresh one.
	StateMachineURLThreshold int `yaml:"stateMachineUrlThreshold,omitempty"`

	// UserAgent is sent with HTTP requests and tested against robots rules.
	UserAgent string `yaml:"userAgent,omitempty"`

	// IgnorePatterns are glob patterns; matching URLs are never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// MaxURLLength drops discovered URLs longer than this many bytes.
	MaxURLLength int `yaml:"maxUrlLength,omitempty"`

	// NavigationTimeout bounds one page navigation, as a Go duration string
	// such as "30s".
	NavigationTimeout string `yaml:"navigationTimeout,omitempty"`

	// QuiescenceWindow is how long the network must stay idle before a page
	// is considered settled, as a Go duration string.
	QuiescenceWindow string `yaml:"quiescenceWindow,omitempty"`

	// FetchTimeout bounds the plain HTTP requests, as a Go duration string.
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`
}

// SQLiteSection configures the sqlite frontier driver.
type SQLiteSection struct {
	// Path is the database file. Empty uses ~/.sidewinder/sidewinder.db.
	Path string `yaml:"path,omitempty"`
}

// RedisSection configures the redis frontier driver.
type RedisSection struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	// Prefix namespaces every key this crawler writes.
	Prefix string `yaml:"prefix,omitempty"`
}

// FrontierSection selects and configures the frontier store.
type FrontierSection struct {
	Driver string        `yaml:"driver,omitempty"`
	SQLite SQLiteSection `yaml:"sqlite,omitempty"`
	Redis  RedisSection  `yaml:"redis,omitempty"`
}

// FSSection configures the filesystem blob driver.
type FSSection struct {
	// Root is the directory crawl content is written under.
	Root string `yaml:"root,omitempty"`
}

// S3Section configures the s3 blob driver.
type S3Section struct {
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// BlobsSection selects and configures the blob store.
type BlobsSection struct {
	Driver string    `yaml:"driver,omitempty"`
	FS     FSSection `yaml:"fs,omitempty"`
	S3     S3Section `yaml:"s3,omitempty"`
}

// KafkaSection configures the kafka event sink.
type KafkaSection struct {
	Broker string `yaml:"broker,omitempty"`
	Topic  string `yaml:"topic,omitempty"`
}

// EventsSection selects the event sinks.
type EventsSection struct {
	Sinks []string     `yaml:"sinks,omitempty"`
	Kafka KafkaSection `yaml:"kafka,omitempty"`
}

// LogSection configures logging.
type LogSection struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level,omitempty"`
	// Format is text or json. Empty means text.
	Format string `yaml:"format,omitempty"`
}

// File is the structure of the configuration file.
type File struct {
	Crawl    CrawlSection    `yaml:"crawl"`
	Frontier FrontierSection `yaml:"frontier,omitempty"`
	Blobs    BlobsSection    `yaml:"blobs,omitempty"`
	Events   EventsSection   `yaml:"events,omitempty"`
	Log      LogSection      `yaml:"log,omitempty"`
}

// Default returns a File with every driver set to its default: a sqlite
// frontier, filesystem blobs under ./crawls, and the log event sink.
func Default() *File {
	return &File{
		Frontier: FrontierSection{Driver: FrontierSQLite},
		Blobs:    BlobsSection{Driver: BlobsFS, FS: FSSection{Root: "./crawls"}},
		Events:   EventsSection{Sinks: []string{SinkLog}, Kafka: KafkaSection{Topic: "sidewinder-events"}},
		Log:      LogSection{Level: "info", Format: "text"},
	}
}

// applyDefaults fills in driver selections the file left empty.
func (f *File) applyDefaults() {
	defaults := Default()
	if f.Frontier.Driver == "" {
		f.Frontier.Driver = defaults.Frontier.Driver
	}
	if f.Blobs.Driver == "" {
		f.Blobs.Driver = defaults.Blobs.Driver
	}
	if f.Blobs.Driver == BlobsFS && f.Blobs.FS.Root == "" {
		f.Blobs.FS.Root = defaults.Blobs.FS.Root
	}
	if len(f.Events.Sinks) == 0 {
		f.Events.Sinks = defaults.Events.Sinks
	}
	if f.Events.Kafka.Topic == "" {
		f.Events.Kafka.Topic = defaults.Events.Kafka.Topic
	}
	if f.Log.Level == "" {
		f.Log.Level = defaults.Log.Level
	}
	if f.Log.Format == "" {
		f.Log.Format = defaults.Log.Format
	}
}

// Validate checks the driver selections. Crawl settings are validated
// separately by sidewinder.Config.Validate when the crawl starts.
func (f *File) Validate() error {
	switch f.Frontier.Driver {
	case FrontierSQLite, FrontierRedis, FrontierMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrontierDriver, f.Frontier.Driver)
	}
	switch f.Blobs.Driver {
	case BlobsFS, BlobsS3:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBlobDriver, f.Blobs.Driver)
	}
	for _, sink := range f.Events.Sinks {
		switch sink {
		case SinkLog, SinkKafka:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownSink, sink)
		}
	}
	return nil
}

// CrawlConfig translates the crawl section into the crawler's config,
// filling unset fields with defaults.
func (f *File) CrawlConfig() (*sidewinder.Config, error) {
	cfg := sidewinder.NewDefaultConfig()
	cfg.BaseURL = f.Crawl.BaseURL
	cfg.CrawlName = f.Crawl.Name
	cfg.PathKeywords = f.Crawl.Keywords
	cfg.IgnorePatterns = f.Crawl.IgnorePatterns

	if f.Crawl.ParallelURLsToSync > 0 {
		cfg.ParallelURLsToSync = f.Crawl.ParallelURLsToSync
	}
	if f.Crawl.StateMachineURLThreshold > 0 {
		cfg.StateMachineURLThreshold = f.Crawl.StateMachineURLThreshold
	}
	if f.Crawl.UserAgent != "" {
		cfg.UserAgent = f.Crawl.UserAgent
	}
	if f.Crawl.MaxURLLength > 0 {
		cfg.MaxURLLength = f.Crawl.MaxURLLength
	}

	var err error
	if cfg.NavigationTimeout, err = parseDuration(f.Crawl.NavigationTimeout, cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("failed to parse navigation timeout: %v", err)
	}
	if cfg.QuiescenceWindow, err = parseDuration(f.Crawl.QuiescenceWindow, cfg.QuiescenceWindow); err != nil {
		return nil, fmt.Errorf("failed to parse quiescence window: %v", err)
	}
	if cfg.FetchTimeout, err = parseDuration(f.Crawl.FetchTimeout, cfg.FetchTimeout); err != nil {
		return nil, fmt.Errorf("failed to parse fetch timeout: %v", err)
	}
	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
