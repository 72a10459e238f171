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

// Package memory implements streamkit.EventStorage as an in-process map,
// for tests and single-node deployments with no durability requirement.
package memory

import (
	"context"
	"iter"
	"sync"

	"github.com/streamkit/streamkit"
	"github.com/streamkit/streamkit/uuid"
)

// EventStore is an in-memory streamkit.EventStorage. Every read returns a
// copy so callers cannot mutate state out from under a concurrent write.
type EventStore struct {
	mu         sync.RWMutex
	aggregates map[any][]streamkit.Event
	sagas      map[any][]streamkit.Event
	all        []streamkit.Event
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{
		aggregates: make(map[any][]streamkit.Event),
		sagas:      make(map[any][]streamkit.Event),
	}
}

// NewID allocates a fresh random UUID-backed ID.
func (s *EventStore) NewID(_ context.Context) (streamkit.ID, error) {
	return streamkit.NewID(uuid.New()), nil
}

// CommitEvents appends events to the log, indexing each under its
// aggregate and, if set, its saga.
func (s *EventStore) CommitEvents(_ context.Context, events []streamkit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if !e.AggregateID.IsZero() {
			key := e.AggregateID.Value()
			s.aggregates[key] = append(s.aggregates[key], e)
		}
		if !e.SagaID.IsZero() {
			key := e.SagaID.Value()
			s.sagas[key] = append(s.sagas[key], e)
		}
		s.all = append(s.all, e)
	}
	return nil
}

// AggregateEvents returns id's events, optionally resuming after
// afterVersion.
func (s *EventStore) AggregateEvents(_ context.Context, id streamkit.ID, afterVersion *uint64) ([]streamkit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.aggregates[id.Value()]
	if afterVersion == nil {
		return append([]streamkit.Event(nil), events...), nil
	}
	out := make([]streamkit.Event, 0, len(events))
	for _, e := range events {
		if e.AggregateVersion != nil && *e.AggregateVersion > *afterVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

// SagaEvents returns sagaID's events committed with SagaVersion strictly
// less than beforeVersion.
func (s *EventStore) SagaEvents(_ context.Context, sagaID streamkit.ID, beforeVersion uint64) ([]streamkit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.sagas[sagaID.Value()]
	out := make([]streamkit.Event, 0, len(events))
	for _, e := range events {
		if e.SagaVersion != nil && *e.SagaVersion < beforeVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

// AllEvents returns a lazily-filtered view of the whole log, taken as a
// snapshot of the log at call time so a concurrent CommitEvents does not
// race with an in-progress iteration.
func (s *EventStore) AllEvents(_ context.Context, types ...string) (iter.Seq2[streamkit.Event, error], error) {
	s.mu.RLock()
	snapshot := append([]streamkit.Event(nil), s.all...)
	s.mu.RUnlock()

	typeSet := make(map[string]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	return func(yield func(streamkit.Event, error) bool) {
		for _, e := range snapshot {
			if len(typeSet) > 0 {
				if _, ok := typeSet[e.Type]; !ok {
					continue
				}
			}
			if !yield(e, nil) {
				return
			}
		}
	}, nil
}
