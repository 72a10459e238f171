// Copyright (c) 2014 - Max Ekman <max@looplab.se>
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

// Package gcppubsub implements streamkit.MessageBus and
// streamkit.QueueingBus on top of cloud.google.com/go/pubsub: topics are
// event types and pull subscriptions are named queues.
package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/streamkit/streamkit"
)

// Bus is a streamkit.MessageBus backed by a Google Cloud Pub/Sub
// project.
type Bus struct {
	client *pubsub.Client
	appID  string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	subs   []*pubsub.Subscription
}

// NewBus creates a Bus against projectID, namespacing its topics and
// subscriptions under appID.
func NewBus(ctx context.Context, projectID, appID string, opts ...option.ClientOption) (*Bus, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create pubsub client: %w", err)
	}
	return &Bus{client: client, appID: appID, topics: make(map[string]*pubsub.Topic)}, nil
}

func (b *Bus) topicName(eventType string) string {
	return b.appID + "-" + eventType
}

func (b *Bus) topic(ctx context.Context, eventType string) (*pubsub.Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := b.topicName(eventType)
	if t, ok := b.topics[name]; ok {
		return t, nil
	}

	topic := b.client.Topic(name)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if topic, err = b.client.CreateTopic(ctx, name); err != nil {
			return nil, err
		}
	}
	b.topics[name] = topic
	return topic, nil
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
	topic, err := b.topic(ctx, event.Type)
	if err != nil {
		return err
	}
	data, err := marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	result := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = result.Get(ctx)
	return err
}

type subscription struct {
	eventType string
	cancel    context.CancelFunc
}

func (s *subscription) EventType() string { return s.eventType }

// On implements streamkit.MessageBus by creating a dedicated
// subscription for this handler, so every subscriber sees every event.
func (b *Bus) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	name := fmt.Sprintf("%s-%s-%p", b.topicName(eventType), "on", handler)
	return b.subscribeImpl(eventType, name, handler)
}

// Off implements streamkit.MessageBus.
func (b *Bus) Off(sub streamkit.Subscription) error {
	s, ok := sub.(*subscription)
	if !ok {
		return nil
	}
	s.cancel()
	return nil
}

// Queue implements streamkit.QueueingBus using one shared pull
// subscription per named queue, which Pub/Sub delivers to exactly one
// puller at a time.
func (b *Bus) Queue(name string) (streamkit.Queue, error) {
	return &queue{bus: b, name: name}, nil
}

type queue struct {
	bus  *Bus
	name string
}

func (q *queue) Name() string { return q.name }

func (q *queue) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	name := q.bus.topicName(eventType) + "-" + q.name
	return q.bus.subscribeImpl(eventType, name, handler)
}

func (b *Bus) subscribeImpl(eventType, name string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	ctx := context.Background()

	topic, err := b.topic(ctx, eventType)
	if err != nil {
		return nil, err
	}

	sub := b.client.Subscription(name)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if sub, err = b.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic}); err != nil {
			return nil, err
		}
	}

	recvCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		_ = sub.Receive(recvCtx, func(ctx context.Context, msg *pubsub.Message) {
			event, err := unmarshal(msg.Data)
			if err != nil {
				msg.Nack()
				return
			}
			if err := handler(ctx, event); err != nil {
				msg.Nack()
				return
			}
			msg.Ack()
		})
	}()

	return &subscription{eventType: eventType, cancel: cancel}, nil
}

// Close releases the underlying client.
func (b *Bus) Close() error {
	return b.client.Close()
}
