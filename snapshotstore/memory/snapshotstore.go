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

// Package memory implements streamkit.SnapshotStorage as an in-process
// map, for tests and single-node deployments with no durability
// requirement.
package memory

import (
	"context"
	"sync"

	"github.com/streamkit/streamkit"
)

// SnapshotStore is an in-memory streamkit.SnapshotStorage.
type SnapshotStore struct {
	mu   sync.RWMutex
	byID map[any]streamkit.Event
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{byID: make(map[any]streamkit.Event)}
}

func (s *SnapshotStore) AggregateSnapshot(_ context.Context, id streamkit.ID) (*streamkit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[id.Value()]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *SnapshotStore) SaveAggregateSnapshot(_ context.Context, event streamkit.Event) error {
	if event.AggregateID.IsZero() {
		return streamkit.ErrMissingAggregateID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[event.AggregateID.Value()] = event
	return nil
}
