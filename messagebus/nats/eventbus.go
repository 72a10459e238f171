// Copyright (c) 2014 - The Event Horizon authors.
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

// Package nats implements streamkit.MessageBus and streamkit.QueueingBus
// on top of github.com/nats-io/nats.go: subjects are event types and
// queue groups are named queues, which already give NATS the
// single-consumer-per-queue semantics streamkit.Queue describes.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/streamkit/streamkit"
)

// Bus is a streamkit.MessageBus backed by a NATS connection.
type Bus struct {
	appID   string
	conn    *nats.Conn
	mu      sync.Mutex
	subs    []*nats.Subscription
	encoded map[string]bool
}

// NewBus connects to a NATS server at url and creates a Bus, namespacing
// its subjects under appID so several applications can share one
// cluster.
func NewBus(url, appID string, opts ...nats.Option) (*Bus, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to nats: %w", err)
	}
	return &Bus{appID: appID, conn: conn}, nil
}

func (b *Bus) subject(eventType string) string {
	return b.appID + "." + eventType
}

// envelope is the JSON wire shape of a published streamkit.Event.
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

// Publish implements streamkit.MessageBus by publishing on event.Type's
// subject.
func (b *Bus) Publish(ctx context.Context, event streamkit.Event) error {
	data, err := marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	if err := b.conn.Publish(b.subject(event.Type), data); err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}
	return nil
}

type subscription struct {
	eventType string
	nats      *nats.Subscription
}

func (s *subscription) EventType() string { return s.eventType }

// On implements streamkit.MessageBus by plain-subscribing to eventType's
// subject (every subscriber sees every event).
func (b *Bus) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	sub, err := b.conn.Subscribe(b.subject(eventType), b.handlerFunc(handler))
	if err != nil {
		return nil, fmt.Errorf("could not subscribe: %w", err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return &subscription{eventType: eventType, nats: sub}, nil
}

// Off implements streamkit.MessageBus.
func (b *Bus) Off(sub streamkit.Subscription) error {
	s, ok := sub.(*subscription)
	if !ok {
		return nil
	}
	return s.nats.Unsubscribe()
}

// Queue implements streamkit.QueueingBus using a NATS queue group named
// after name, giving exactly one member of the group the message.
func (b *Bus) Queue(name string) (streamkit.Queue, error) {
	return &queue{bus: b, name: name}, nil
}

type queue struct {
	bus  *Bus
	name string
}

func (q *queue) Name() string { return q.name }

func (q *queue) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	sub, err := q.bus.conn.QueueSubscribe(q.bus.subject(eventType), q.bus.appID+"."+q.name, q.bus.handlerFunc(handler))
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to queue: %w", err)
	}
	q.bus.mu.Lock()
	q.bus.subs = append(q.bus.subs, sub)
	q.bus.mu.Unlock()
	return &subscription{eventType: eventType, nats: sub}, nil
}

func (b *Bus) handlerFunc(handler streamkit.EventHandlerFunc) nats.MsgHandler {
	return func(msg *nats.Msg) {
		event, err := unmarshal(msg.Data)
		if err != nil {
			return
		}
		_ = handler(context.Background(), event)
	}
}

// Close unsubscribes every subscription and closes the underlying
// connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.conn.Close()
	return nil
}
