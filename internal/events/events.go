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

// Package events provides EventSink implementations for the transports a
// deployment may want: structured logs, a Kafka topic, or several at once.
package events

import (
	"github.com/sirupsen/logrus"

	"github.com/agentberlin/sidewinder"
)

// LogSink writes every crawl event as one structured log line.
type LogSink struct {
	log *logrus.Entry
}

// NewLogSink returns a sink that logs events at info level.
func NewLogSink(log *logrus.Entry) *LogSink {
	return &LogSink{log: log}
}

// Emit implements sidewinder.EventSink.
func (s *LogSink) Emit(event sidewinder.Event) {
	fields := logrus.Fields{
		"crawl": event.CrawlID,
		"name":  event.CrawlName,
	}
	if event.Path != "" {
		fields["path"] = event.Path
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	s.log.WithFields(fields).Info(string(event.Type))
}

// MultiSink fans each event out to every sink, in order.
type MultiSink []sidewinder.EventSink

// Emit implements sidewinder.EventSink.
func (s MultiSink) Emit(event sidewinder.Event) {
	for _, sink := range s {
		sink.Emit(event)
	}
}
