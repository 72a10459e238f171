// Copyright (c) 2021 - The Event Horizon authors.
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

// Package kafka implements streamkit.MessageBus and streamkit.QueueingBus
// on top of github.com/segmentio/kafka-go: topics are event types and
// consumer groups are named queues.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/streamkit/streamkit"
)

const eventTypeHeader = "event_type"

// Bus is a streamkit.MessageBus backed by Kafka.
type Bus struct {
	addr  string
	appID string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
}

// NewBus creates a Bus writing to and reading from the Kafka brokers at
// addr, namespacing its topics under appID.
func NewBus(addr, appID string) *Bus {
	return &Bus{addr: addr, appID: appID, writers: make(map[string]*kafka.Writer)}
}

func (b *Bus) topic(eventType string) string {
	return b.appID + "." + eventType
}

func (b *Bus) writer(eventType string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	topic := b.topic(eventType)
	w, ok := b.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:         kafka.TCP(b.addr),
			Topic:        topic,
			BatchSize:    1,
			RequiredAcks: kafka.RequireOne,
		}
		b.writers[topic] = w
	}
	return w
}

type envelope struct {
	Type             string  `json:"type"`
	AggregateID      any     `json:"aggregateId,omitempty"`
	AggregateVersion *uint64 `json:"aggregateVersion,omitempty"`
	SagaID           any     `json:"sagaId,omitempty"`
	SagaVersion      *uint64 `json:"sagaVersion,omitempty"`
	Payload          any     `json:"payload,omitempty"`
}

func marshal(event streamkit.Event) ([]byte, error) {
	env := envelope{
		Type:             event.Type,
		AggregateVersion: event.AggregateVersion,
		SagaVersion:      event.SagaVersion,
		Payload:          event.Payload,
	}
	if !event.AggregateID.IsZero() {
		env.AggregateID = event.AggregateID.Value()
	}
	if !event.SagaID.IsZero() {
		env.SagaID = event.SagaID.Value()
	}
	return json.Marshal(env)
}

func unmarshal(data []byte) (streamkit.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return streamkit.Event{}, err
	}
	e := streamkit.Event{
		Type:             env.Type,
		AggregateVersion: env.AggregateVersion,
		SagaVersion:      env.SagaVersion,
		Payload:          env.Payload,
	}
	if env.AggregateID != nil {
		e.AggregateID = streamkit.NewID(env.AggregateID)
	}
	if env.SagaID != nil {
		e.SagaID = streamkit.NewID(env.SagaID)
	}
	return e, nil
}

// Publish implements streamkit.MessageBus.
func (b *Bus) Publish(ctx context.Context, event streamkit.Event) error {
	data, err := marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	return b.writer(event.Type).WriteMessages(ctx, kafka.Message{
		Value:   data,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(event.Type)}},
	})
}

type subscription struct {
	eventType string
	reader    *kafka.Reader
	cancel    context.CancelFunc
}

func (s *subscription) EventType() string { return s.eventType }

// On implements streamkit.MessageBus. Every On call gets its own
// consumer group so every subscriber sees every event, matching the
// fan-out semantics of streamkit.MessageBus.On.
func (b *Bus) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	groupID := fmt.Sprintf("%s.%s.%d", b.appID, eventType, time.Now().UnixNano())
	return b.subscribe(eventType, groupID, handler)
}

// Off implements streamkit.MessageBus.
func (b *Bus) Off(sub streamkit.Subscription) error {
	s, ok := sub.(*subscription)
	if !ok {
		return nil
	}
	s.cancel()
	return s.reader.Close()
}

// Queue implements streamkit.QueueingBus using one Kafka consumer group
// per named queue, which gives exactly one member the message.
func (b *Bus) Queue(name string) (streamkit.Queue, error) {
	return &queue{bus: b, name: name}, nil
}

type queue struct {
	bus  *Bus
	name string
}

func (q *queue) Name() string { return q.name }

func (q *queue) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	return q.bus.subscribe(eventType, q.bus.appID+"."+q.name, handler)
}

func (b *Bus) subscribe(eventType, groupID string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{b.addr},
		Topic:       b.topic(eventType),
		GroupID:     groupID,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})

	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	go func() {
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				return
			}
			event, err := unmarshal(msg.Value)
			if err != nil {
				continue
			}
			_ = handler(ctx, event)
		}
	}()

	return &subscription{eventType: eventType, reader: reader, cancel: cancel}, nil
}

// Close closes every reader and writer opened by the bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	for _, w := range b.writers {
		_ = w.Close()
	}
	return nil
}
