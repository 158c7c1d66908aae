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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
crawl:
  baseUrl: https://example.com/docs
  name: example_docs
  keywords: [docs, guide]
  parallelUrlsToSync: 5
  stateMachineUrlThreshold: 20
  navigationTimeout: 15s
frontier:
  driver: redis
  redis:
    addr: localhost:6379
    prefix: sw
blobs:
  driver: s3
  s3:
    region: us-east-1
    bucket: crawl-content
events:
  sinks: [log, kafka]
  kafka:
    broker: localhost:9092
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Crawl.BaseURL != "https://example.com/docs" {
		t.Errorf("BaseURL = %q", f.Crawl.BaseURL)
	}
	if f.Frontier.Driver != FrontierRedis {
		t.Errorf("frontier driver = %q, want %q", f.Frontier.Driver, FrontierRedis)
	}
	if f.Frontier.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", f.Frontier.Redis.Addr)
	}
	if f.Blobs.Driver != BlobsS3 {
		t.Errorf("blob driver = %q, want %q", f.Blobs.Driver, BlobsS3)
	}
	if f.Blobs.S3.Bucket != "crawl-content" {
		t.Errorf("s3 bucket = %q", f.Blobs.S3.Bucket)
	}
	if len(f.Events.Sinks) != 2 {
		t.Errorf("sinks = %v", f.Events.Sinks)
	}
	if f.Events.Kafka.Topic != "sidewinder-events" {
		t.Errorf("kafka topic default = %q", f.Events.Kafka.Topic)
	}

	cfg, err := f.CrawlConfig()
	if err != nil {
		t.Fatalf("CrawlConfig failed: %v", err)
	}
	if cfg.ParallelURLsToSync != 5 {
		t.Errorf("ParallelURLsToSync = %d, want 5", cfg.ParallelURLsToSync)
	}
	if cfg.NavigationTimeout != 15*time.Second {
		t.Errorf("NavigationTimeout = %v, want 15s", cfg.NavigationTimeout)
	}
	if len(cfg.PathKeywords) != 2 {
		t.Errorf("PathKeywords = %v", cfg.PathKeywords)
	}
}

func TestLoadAppliesDriverDefaults(t *testing.T) {
	path := writeConfig(t, `
crawl:
  baseUrl: https://example.com
  name: example
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Frontier.Driver != FrontierSQLite {
		t.Errorf("frontier driver = %q, want %q", f.Frontier.Driver, FrontierSQLite)
	}
	if f.Blobs.Driver != BlobsFS {
		t.Errorf("blob driver = %q, want %q", f.Blobs.Driver, BlobsFS)
	}
	if f.Blobs.FS.Root == "" {
		t.Error("expected a default blob root")
	}
	if len(f.Events.Sinks) != 1 || f.Events.Sinks[0] != SinkLog {
		t.Errorf("sinks = %v, want [log]", f.Events.Sinks)
	}
	if f.Log.Level != "info" {
		t.Errorf("log level = %q, want info", f.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadRejectsUnknownFrontierDriver(t *testing.T) {
	path := writeConfig(t, `
crawl:
  baseUrl: https://example.com
  name: example
frontier:
  driver: etcd
`)
	if _, err := Load(path); !errors.Is(err, ErrUnknownFrontierDriver) {
		t.Fatalf("expected ErrUnknownFrontierDriver, got %v", err)
	}
}

func TestLoadRejectsUnknownSink(t *testing.T) {
	path := writeConfig(t, `
crawl:
  baseUrl: https://example.com
  name: example
events:
  sinks: [log, carrier-pigeon]
`)
	if _, err := Load(path); !errors.Is(err, ErrUnknownSink) {
		t.Fatalf("expected ErrUnknownSink, got %v", err)
	}
}

func TestCrawlConfigRejectsBadDuration(t *testing.T) {
	f := Default()
	f.Crawl.BaseURL = "https://example.com"
	f.Crawl.Name = "example"
	f.Crawl.FetchTimeout = "three seconds"

	if _, err := f.CrawlConfig(); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestFindExplicitPath(t *testing.T) {
	path := writeConfig(t, "crawl:\n  name: x\n")

	if got := Find(path); got != path {
		t.Errorf("Find(%q) = %q, want the explicit path", path, got)
	}
	if got := Find(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
		t.Errorf("Find on a missing explicit path = %q, want empty", got)
	}
}
