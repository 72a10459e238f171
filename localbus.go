// Copyright (c) 2015 - The Event Horizon authors.
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

package streamkit

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"
)

// localBus is the in-process MessageBus used whenever no explicit bus is
// configured and the EventStorage does not implement EventSubscriber. It
// is the default fallback described by spec §4.1.4.
type localBus struct {
	mu       sync.RWMutex
	handlers map[string][]*localSub
	queues   map[string]*localQueue
}

func newLocalBus() *localBus {
	return &localBus{
		handlers: make(map[string][]*localSub),
		queues:   make(map[string]*localQueue),
	}
}

type localSub struct {
	eventType string
	handler   EventHandlerFunc
}

func (s *localSub) EventType() string { return s.eventType }

func (b *localBus) On(eventType string, handler EventHandlerFunc) (Subscription, error) {
	if eventType == "" || handler == nil {
		return nil, ErrInvalidArgument
	}
	sub := &localSub{eventType: eventType, handler: handler}
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *localBus) Off(sub Subscription) error {
	s, ok := sub.(*localSub)
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

// Publish delivers event to every handler registered for event.Type, and
// to exactly one consumer per queue registered for event.Type. A struct
// payload (or pointer to struct) is shallow-copied per handler with
// github.com/jinzhu/copier, so one handler assigning to its payload's
// fields does not change what another handler observes; other payloads,
// and values referenced from a struct's fields, are shared.
func (b *localBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]*localSub(nil), b.handlers[event.Type]...)
	if event.Type != wildcardEventType {
		subs = append(subs, b.handlers[wildcardEventType]...)
	}
	var queues []*localQueue
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

// Queue returns (creating if necessary) the named queue. Satisfies
// QueueingBus.
func (b *localBus) Queue(name string) (Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = &localQueue{name: name, handlers: make(map[string][]EventHandlerFunc)}
		b.queues[name] = q
	}
	return q, nil
}

// deliver clones event's Payload into a fresh value before invoking
// handler, mirroring the teacher's eventbus/local isolation guarantee.
func deliver(ctx context.Context, handler EventHandlerFunc, event Event) error {
	if event.Payload != nil {
		clone, err := clonePayload(event.Payload)
		if err == nil {
			event.Payload = clone
		}
	}
	return handler(ctx, event)
}

func clonePayload(src any) (any, error) {
	if src == nil {
		return nil, nil
	}
	dst := newZeroLike(src)
	if dst == nil {
		return src, nil
	}
	if err := copier.Copy(dst, src); err != nil {
		return nil, err
	}
	return derefIfPointer(dst), nil
}

// localQueue is a named, single-consumer-per-event subscription set.
// Delivery round-robins across its registered handlers for a given
// event type.
type localQueue struct {
	mu       sync.Mutex
	name     string
	handlers map[string][]EventHandlerFunc
	next     map[string]int
}

func (q *localQueue) Name() string { return q.name }

func (q *localQueue) handles(eventType string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handlers[eventType]) > 0
}

func (q *localQueue) On(eventType string, handler EventHandlerFunc) (Subscription, error) {
	if eventType == "" || handler == nil {
		return nil, ErrInvalidArgument
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[eventType] = append(q.handlers[eventType], handler)
	return &localSub{eventType: eventType, handler: handler}, nil
}

func (q *localQueue) deliver(ctx context.Context, event Event) error {
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
