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

package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/agentberlin/sidewinder"
)

type capturingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *capturingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	w.msgs = append(w.msgs, msgs...)
	w.mu.Unlock()
	return nil
}

func (w *capturingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSinkPublishesEvent(t *testing.T) {
	writer := &capturingWriter{}
	logger, _ := logtest.NewNullLogger()
	sink := NewKafkaSinkWithWriter(writer, logrus.NewEntry(logger))

	event := sidewinder.Event{
		Type:      sidewinder.EventPageCrawled,
		CrawlID:   "crawl-123",
		CrawlName: "docs",
		Path:      "/guide",
		Timestamp: time.Unix(1755600000, 0),
	}
	sink.Emit(event)

	if len(writer.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if string(msg.Key) != "crawl-123" {
		t.Errorf("message key = %q, want %q", msg.Key, "crawl-123")
	}
	if !msg.Time.Equal(event.Timestamp) {
		t.Errorf("message time = %v, want %v", msg.Time, event.Timestamp)
	}

	var got sidewinder.Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if got.Type != event.Type || got.CrawlID != event.CrawlID || got.Path != event.Path {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestKafkaSinkSwallowsWriteFailure(t *testing.T) {
	writer := &capturingWriter{err: errors.New("broker unreachable")}
	logger, hook := logtest.NewNullLogger()
	sink := NewKafkaSinkWithWriter(writer, logrus.NewEntry(logger))

	sink.Emit(sidewinder.Event{Type: sidewinder.EventCrawlStarted, CrawlID: "c1"})

	if len(writer.msgs) != 0 {
		t.Fatalf("expected no stored messages, got %d", len(writer.msgs))
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("expected one warning about the failed publish")
	}
}

func TestKafkaSinkClose(t *testing.T) {
	writer := &capturingWriter{}
	logger, _ := logtest.NewNullLogger()
	sink := NewKafkaSinkWithWriter(writer, logrus.NewEntry(logger))

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !writer.closed {
		t.Error("expected the writer to be closed")
	}
}

func TestLogSinkEmitsStructuredLine(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := NewLogSink(logrus.NewEntry(logger))

	sink.Emit(sidewinder.Event{
		Type:      sidewinder.EventPageFailed,
		CrawlID:   "c1",
		CrawlName: "docs",
		Path:      "/broken",
		Error:     "net::ERR_CONNECTION_RESET",
	})

	if len(hook.Entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(hook.Entries))
	}
	entry := hook.LastEntry()
	if entry.Message != string(sidewinder.EventPageFailed) {
		t.Errorf("message = %q, want %q", entry.Message, sidewinder.EventPageFailed)
	}
	if entry.Data["path"] != "/broken" {
		t.Errorf("path field = %v, want %q", entry.Data["path"], "/broken")
	}
	if entry.Data["error"] != "net::ERR_CONNECTION_RESET" {
		t.Errorf("error field = %v", entry.Data["error"])
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	writer := &capturingWriter{}
	sink := MultiSink{
		NewLogSink(logrus.NewEntry(logger)),
		NewKafkaSinkWithWriter(writer, logrus.NewEntry(logger)),
	}

	sink.Emit(sidewinder.Event{Type: sidewinder.EventCrawlCompleted, CrawlID: "c1"})

	if len(hook.Entries) != 1 {
		t.Errorf("expected the log sink to record the event, got %d entries", len(hook.Entries))
	}
	if len(writer.msgs) != 1 {
		t.Errorf("expected the kafka sink to publish the event, got %d messages", len(writer.msgs))
	}
}
