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

import "context"

// Aggregate is a deterministic state machine: its State is fully
// reproducible by applying its committed EventStream in order, and it
// turns Commands into Changes against that state.
type Aggregate interface {
	// ID returns the aggregate's identity.
	ID() ID
	// Version returns the version of the last event folded into State;
	// zero means the aggregate has never been mutated.
	Version() uint64
	// State returns the aggregate's current state. Opaque to the core.
	State() any
	// Changes returns the events produced since the aggregate was
	// hydrated, not yet committed.
	Changes() []Event

	// Handle validates cmd against State and, if valid, mutates State
	// and appends to Changes. It must leave State and Changes untouched
	// for a command it rejects.
	Handle(ctx context.Context, cmd Command) error
}

// SnapshotMaker is the optional capability of an Aggregate that can
// serialize itself into a snapshot event. An aggregate that implements
// ShouldTakeSnapshot must also implement this interface.
type SnapshotMaker interface {
	// MakeSnapshot returns a snapshot event capturing the aggregate's
	// full current State, versioned at Version.
	MakeSnapshot() (Event, error)
}

// SnapshotTaker is the optional capability of an Aggregate to decide,
// after handling a command, whether the EventStore should persist a
// snapshot alongside the command's events.
type SnapshotTaker interface {
	// ShouldTakeSnapshot is consulted once per Execute, after every
	// produced event has been applied.
	ShouldTakeSnapshot() bool
}

// SnapshotRestorer is the optional capability of an Aggregate to
// initialize its state from a snapshot event instead of replaying the
// full history up to that point. An AggregateFactory.New that is handed
// a non-nil snapshot calls this before folding any later events.
type SnapshotRestorer interface {
	// RestoreSnapshot seeds the aggregate's State from snapshot, which
	// was produced by a prior MakeSnapshot call. Version is set to
	// snapshot's AggregateVersion as part of the restore.
	RestoreSnapshot(snapshot Event) error
}

// AggregateBase is an embeddable implementation of the bookkeeping shared
// by every Aggregate: identity, version tracking, and the pending change
// buffer. Concrete aggregates embed it and call Emit from within Handle
// whenever they decide to mutate, and Mutate to fold one event (freshly
// emitted or replayed) into their own state.
type AggregateBase struct {
	id      ID
	version uint64
	changes []Event
}

// NewAggregateBase creates an AggregateBase identified by id.
func NewAggregateBase(id ID) *AggregateBase {
	return &AggregateBase{id: id}
}

func (a *AggregateBase) ID() ID           { return a.id }
func (a *AggregateBase) Version() uint64  { return a.version }
func (a *AggregateBase) Changes() []Event { return a.changes }

// Emit appends an event of eventType to the pending change buffer,
// stamped with this aggregate's ID and the version it will have once
// applied, and advances the version counter. Callers fold the same event
// into their own state (e.g. by calling their own apply method) before or
// after calling Emit; Emit itself only performs the bookkeeping.
func (a *AggregateBase) Emit(eventType string, payload any) Event {
	a.version++
	v := a.version
	event := Event{
		Type:             eventType,
		AggregateID:      a.id,
		AggregateVersion: &v,
		Payload:          payload,
	}
	a.changes = append(a.changes, event)
	return event
}

// Mutate advances the version counter to event's AggregateVersion without
// appending to the change buffer, used while replaying already-committed
// history. An event without an AggregateVersion leaves the counter
// unchanged; the new version is not checked against the current one.
func (a *AggregateBase) Mutate(event Event) {
	if event.AggregateVersion == nil {
		return
	}
	a.version = *event.AggregateVersion
}

// RestoreVersion sets the version counter directly, used when seeding
// state from a snapshot.
func (a *AggregateBase) RestoreVersion(v uint64) {
	a.version = v
}

// ClearChanges empties the pending change buffer without touching the
// version counter, used after a successful commit.
func (a *AggregateBase) ClearChanges() {
	a.changes = nil
}
