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

package sidewinder

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrMissingBaseURL is returned when a crawl is started without a base URL.
	ErrMissingBaseURL = errors.New("missing base URL")
	// ErrMissingCrawlName is returned when a crawl is started without a name.
	ErrMissingCrawlName = errors.New("missing crawl name")
	// ErrInvalidBaseURL is the error type for base URLs that cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid base URL")
	// ErrInvalidParallelism is returned when ParallelURLsToSync is not positive.
	ErrInvalidParallelism = errors.New("parallel URLs to sync must be positive")
	// ErrInvalidThreshold is returned when StateMachineURLThreshold is not positive.
	ErrInvalidThreshold = errors.New("state machine URL threshold must be positive")
)

// Config contains all configuration options for a crawl. A single immutable
// value is threaded through every component; nothing reads it from globals.
type Config struct {
	// BaseURL is the absolute URL the crawl starts from. The same-site test
	// treats any URL carrying this string as a literal prefix as internal.
	BaseURL string
	// CrawlName prefixes every blob key written by this crawl.
	CrawlName string
	// PathKeywords restricts discovered links to those whose URL contains at
	// least one keyword (case-insensitive). Leave it empty to follow every
	// same-site link.
	PathKeywords []string

	// ParallelURLsToSync is the number of paths dequeued and extracted
	// concurrently per crawl step.
	ParallelURLsToSync int
	// StateMachineURLThreshold is the maximum number of further steps one
	// execution may take on the remaining frontier before the orchestrator
	// signals a continuation instead of looping.
	StateMachineURLThreshold int

	// UserAgent is the User-Agent string used by HTTP requests and tested
	// against the site's robots policy.
	UserAgent string
	// IgnorePatterns is a list of glob patterns; a discovered URL matching
	// any of them is dropped before the frontier sees it.
	IgnorePatterns []string
	// MaxURLLength drops discovered URLs longer than this many bytes.
	// 0 means unlimited.
	MaxURLLength int

	// NavigationTimeout bounds a single page navigation including the
	// network-quiescence wait.
	NavigationTimeout time.Duration
	// QuiescenceWindow is how long the network must stay free of in-flight
	// requests before a navigation is considered settled.
	QuiescenceWindow time.Duration
	// FetchTimeout bounds the plain HTTP requests (robots policy, the
	// last-modified HEAD probe).
	FetchTimeout time.Duration
}

// NewDefaultConfig returns a Config with sensible defaults. BaseURL and
// CrawlName must still be set by the caller.
func NewDefaultConfig() *Config {
	return &Config{
		ParallelURLsToSync:       10,
		StateMachineURLThreshold: 50,
		UserAgent:                "sidewinder/1.0 (+https://github.com/agentberlin/sidewinder)",
		MaxURLLength:             2048,
		NavigationTimeout:        30 * time.Second,
		QuiescenceWindow:         500 * time.Millisecond,
		FetchTimeout:             10 * time.Second,
	}
}

// Validate checks the config for values a crawl cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if strings.TrimSpace(c.CrawlName) == "" {
		return ErrMissingCrawlName
	}
	if _, err := urlParser.Parse(c.BaseURL); err != nil {
		return ErrInvalidBaseURL
	}
	if c.ParallelURLsToSync <= 0 {
		return ErrInvalidParallelism
	}
	if c.StateMachineURLThreshold <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}
