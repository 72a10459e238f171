// Copyright (c) 2018 - The Event Horizon authors.
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

// Package local is the explicitly-constructible counterpart of the
// in-process bus streamkit.NewEventStore falls back to when no
// streamkit.WithMessageBus option is given. Use it when several
// EventStore instances (or an EventStore and a standalone consumer)
// need to share one in-process bus, which the package-private fallback
// cannot do.
package local

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/streamkit/streamkit"
)

// wildcardEventType subscribes a handler to every event type, mirroring
// streamkit's internal fallback bus.
const wildcardEventType = "*"

// Bus is an in-process streamkit.MessageBus and streamkit.QueueingBus.
// Several EventStore instances can share one Bus by passing it to
// streamkit.WithMessageBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
	queues   map[string]*queue
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]*subscription),
		queues:   make(map[string]*queue),
	}
}

type subscription struct {
	eventType string
	handler   streamkit.EventHandlerFunc
}

func (s *subscription) EventType() string { return s.eventType }

// On implements streamkit.MessageBus.
func (b *Bus) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	if eventType == "" || handler == nil {
		return nil, streamkit.ErrInvalidArgument
	}
	sub := &subscription{eventType: eventType, handler: handler}
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], sub)
	b.mu.Unlock()
	return sub, nil
}

// Off implements streamkit.MessageBus.
func (b *Bus) Off(sub streamkit.Subscription) error {
	s, ok := sub.(*subscription)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[s.eventType]
	for i, cand := range list {
		if cand == s {
			b.handlers[s.eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// Publish implements streamkit.MessageBus, delivering a private copy of
// event to every matching handler and to exactly one consumer per
// matching queue.
func (b *Bus) Publish(ctx context.Context, event streamkit.Event) error {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.handlers[event.Type]...)
	if event.Type != wildcardEventType {
		subs = append(subs, b.handlers[wildcardEventType]...)
	}
	var queues []*queue
	for _, q := range b.queues {
		if q.handles(event.Type) {
			queues = append(queues, q)
		}
	}
	b.mu.RUnlock()

	var firstErr error
	for _, sub := range subs {
		if err := deliver(ctx, sub.handler, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, q := range queues {
		if err := q.deliver(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Queue implements streamkit.QueueingBus.
func (b *Bus) Queue(name string) (streamkit.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = &queue{name: name, handlers: make(map[string][]streamkit.EventHandlerFunc)}
		b.queues[name] = q
	}
	return q, nil
}

func deliver(ctx context.Context, handler streamkit.EventHandlerFunc, event streamkit.Event) error {
	if event.Payload != nil {
		if clone, err := clonePayload(event.Payload); err == nil {
			event.Payload = clone
		}
	}
	return handler(ctx, event)
}

func clonePayload(src any) (any, error) {
	dst := newZeroLike(src)
	if dst == nil {
		return src, nil
	}
	if err := copier.Copy(dst, src); err != nil {
		return nil, err
	}
	return derefIfPointer(dst), nil
}

// queue is a named, single-consumer-per-event-type subscription set.
// Delivery round-robins across its registered handlers.
type queue struct {
	mu       sync.Mutex
	name     string
	handlers map[string][]streamkit.EventHandlerFunc
	next     map[string]int
}

func (q *queue) Name() string { return q.name }

func (q *queue) handles(eventType string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handlers[eventType]) > 0
}

func (q *queue) On(eventType string, handler streamkit.EventHandlerFunc) (streamkit.Subscription, error) {
	if eventType == "" || handler == nil {
		return nil, streamkit.ErrInvalidArgument
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[eventType] = append(q.handlers[eventType], handler)
	return &subscription{eventType: eventType, handler: handler}, nil
}

func (q *queue) deliver(ctx context.Context, event streamkit.Event) error {
	q.mu.Lock()
	list := q.handlers[event.Type]
	if len(list) == 0 {
		q.mu.Unlock()
		return nil
	}
	if q.next == nil {
		q.next = make(map[string]int)
	}
	i := q.next[event.Type] % len(list)
	q.next[event.Type] = i + 1
	handler := list[i]
	q.mu.Unlock()
	return deliver(ctx, handler, event)
}
