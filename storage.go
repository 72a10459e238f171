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

package streamkit

import (
	"context"
	"iter"
)

// EventStorage is the durable append-only log the core delegates to. It
// exposes the four persistence operations of spec §6; any backend that
// implements this interface can drive an EventStore.
type EventStorage interface {
	// NewID allocates a fresh, storage-unique ID.
	NewID(ctx context.Context) (ID, error)

	// CommitEvents durably appends events atomically over the whole
	// batch. Events are assumed already validated and saga-stamped.
	CommitEvents(ctx context.Context, events []Event) error

	// AggregateEvents returns events for id. If afterVersion is non-nil,
	// only events with AggregateVersion > *afterVersion are returned
	// (used to resume after a snapshot).
	AggregateEvents(ctx context.Context, id ID, afterVersion *uint64) ([]Event, error)

	// SagaEvents returns events for sagaID with SagaVersion strictly less
	// than beforeVersion, in commit order.
	SagaEvents(ctx context.Context, sagaID ID, beforeVersion uint64) ([]Event, error)

	// AllEvents returns a lazy sequence of events across all aggregates,
	// optionally filtered to the given types (no filter means all
	// types). Iteration stops at the first error; the yielded error is
	// then non-nil and no further events follow.
	AllEvents(ctx context.Context, types ...string) (iter.Seq2[Event, error], error)
}

// EventSubscriber is an optional capability of an EventStorage: a storage
// backend that can itself notify subscribers of newly committed events
// (e.g. a change-stream backed store). When an EventStore is constructed
// without an explicit MessageBus, it probes its EventStorage for this
// interface before falling back to the built-in local bus (spec §4.1.4).
// A storage-provided subscription surface is used for subscribe only;
// EventStore.Commit always calls CommitEvents to persist, never Publish.
type EventSubscriber interface {
	Subscribe(eventType string, handler EventHandlerFunc) (Subscription, error)
}

// SnapshotStorage is the optional latest-snapshot key/value store, keyed
// by aggregate ID. Saving a snapshot replaces any prior snapshot for the
// same aggregate.
type SnapshotStorage interface {
	// AggregateSnapshot returns the latest snapshot for id, or nil if
	// none exists.
	AggregateSnapshot(ctx context.Context, id ID) (*Event, error)

	// SaveAggregateSnapshot persists event as the latest snapshot for
	// event.AggregateID, replacing any prior one. Returns
	// ErrMissingAggregateID if event.AggregateID is unset.
	SaveAggregateSnapshot(ctx context.Context, event Event) error
}
