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

import "time"

// EventType represents the type of event
type EventType string

const (
	EventCrawlStarted   EventType = "crawl:started"
	EventCrawlContinued EventType = "crawl:continued"
	EventCrawlCompleted EventType = "crawl:completed"
	EventPageCrawled    EventType = "page:crawled"
	EventPageFailed     EventType = "page:failed"
)

// Event carries one crawl lifecycle notification.
type Event struct {
	Type      EventType `json:"type"`
	CrawlID   string    `json:"crawlId"`
	CrawlName string    `json:"crawlName"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink is the interface for emitting events
// Each transport layer implements this differently:
// - Log: structured log lines
// - Kafka: messages on a crawl events topic
// The crawl never blocks on event delivery and never fails on a sink error.
type EventSink interface {
	Emit(event Event)
}

// NoOpSink is a default implementation that does nothing
// Useful for testing or when events aren't needed
type NoOpSink struct{}

// Emit does nothing
func (NoOpSink) Emit(event Event) {}
