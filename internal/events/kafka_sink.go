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
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/agentberlin/sidewinder"
)

const publishTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes crawl events to a Kafka topic, keyed by crawl id so one
// crawl's events land on one partition in order. Publishing is fire-and-forget;
// a failed write is logged and never fails the crawl step that emitted it.
type KafkaSink struct {
	writer messageWriter
	log    *logrus.Entry
}

// NewKafkaSink returns a sink publishing to the given broker and topic.
func NewKafkaSink(broker, topic string, log *logrus.Entry) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: false,
		},
		log: log,
	}
}

// NewKafkaSinkWithWriter builds a sink using a custom writer (tests).
func NewKafkaSinkWithWriter(writer messageWriter, log *logrus.Entry) *KafkaSink {
	return &KafkaSink{writer: writer, log: log}
}

// Emit implements sidewinder.EventSink.
func (s *KafkaSink) Emit(event sidewinder.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warnf("failed to encode event %s: %v", event.Type, err)
		return
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := kafka.Message{
		Key:   []byte(event.CrawlID),
		Value: payload,
		Time:  ts.UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.WithField("event", string(event.Type)).Warnf("failed to publish event: %v", err)
	}
}

// Close shuts down the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
