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

// AggregateFactory builds an aggregate hydrated from its prior history
// (and, if one exists, a leading snapshot), and declares which command
// types route to it. One factory is registered per aggregate type with
// an AggregateCommandHandler.
//
// New receives events exactly as GetAggregateEvents returns them: if
// snapshot is non-nil it is also the first element of events, included
// so that a New that does not special-case snapshots still replays a
// correct (if slower) history.
type AggregateFactory struct {
	// New builds the aggregate identified by id, replaying events (and
	// restoring from snapshot first, if non-nil) to reach its current
	// state.
	New func(id ID, events []Event, snapshot *Event) (Aggregate, error)
	// Handles lists the command types routed to this aggregate type.
	Handles []string
}

// AggregateCommandHandler loads the aggregate addressed by a command,
// hands the command to it, and commits whatever events it produced. It is
// the bridge between a CommandBus and an EventStore (spec §4.2).
type AggregateCommandHandler struct {
	store    *EventStore
	factory  AggregateFactory
	snapshot SnapshotPolicy
	logger   Logger
}

// SnapshotPolicy decides, independent of an aggregate's own
// ShouldTakeSnapshot, whether a snapshot should be attempted for the
// given aggregate after a successful command. Most callers leave this
// nil, deferring entirely to SnapshotTaker.
type SnapshotPolicy func(a Aggregate) bool

// NewAggregateCommandHandler builds a handler that loads and commits
// factory's aggregate type against store.
func NewAggregateCommandHandler(store *EventStore, factory AggregateFactory) *AggregateCommandHandler {
	return &AggregateCommandHandler{store: store, factory: factory, logger: defaultLogger{}}
}

// WithSnapshotPolicy overrides the default reliance on
// Aggregate.ShouldTakeSnapshot.
func (h *AggregateCommandHandler) WithSnapshotPolicy(p SnapshotPolicy) *AggregateCommandHandler {
	h.snapshot = p
	return h
}

// WithLogger overrides the default logger.
func (h *AggregateCommandHandler) WithLogger(l Logger) *AggregateCommandHandler {
	h.logger = l
	return h
}

// Subscribe registers h against bus for every command type its factory
// handles, each dispatching to Execute.
func (h *AggregateCommandHandler) Subscribe(bus CommandSubscriber) error {
	for _, cmdType := range h.factory.Handles {
		if err := bus.SetHandler(cmdType, h.Execute); err != nil {
			return err
		}
	}
	return nil
}

// Execute loads the aggregate addressed by cmd (or, if cmd.AggregateID is
// zero, allocates a new one and constructs a brand-new aggregate),
// replays its history (restoring from a snapshot first when one exists),
// hands cmd to it, and commits the events it produced.
func (h *AggregateCommandHandler) Execute(ctx context.Context, cmd Command) (EventStream, error) {
	if cmd.Type == "" {
		return nil, ErrInvalidArgument
	}

	var a Aggregate
	var err error
	if cmd.AggregateID.IsZero() {
		a, err = h.create(ctx)
	} else {
		a, err = h.load(ctx, cmd.AggregateID)
	}
	if err != nil {
		return nil, err
	}
	cmd.AggregateID = a.ID()

	if err := a.Handle(ctx, cmd); err != nil {
		return nil, err
	}

	changes := a.Changes()
	if len(changes) == 0 {
		return nil, nil
	}

	if h.wantsSnapshot(a) {
		maker, ok := a.(SnapshotMaker)
		if !ok {
			return nil, ErrSnapshotContractViolation
		}
		snapshot, err := maker.MakeSnapshot()
		if err != nil {
			return nil, err
		}
		changes = append(changes, snapshot)
	}

	return h.store.Commit(ctx, changes...)
}

func (h *AggregateCommandHandler) wantsSnapshot(a Aggregate) bool {
	if h.snapshot != nil {
		return h.snapshot(a)
	}
	taker, ok := a.(SnapshotTaker)
	return ok && taker.ShouldTakeSnapshot()
}

// create allocates a fresh ID from the store and hands it to the factory
// with no history, for commands addressed at no existing aggregate.
func (h *AggregateCommandHandler) create(ctx context.Context) (Aggregate, error) {
	id, err := h.store.GetNewID(ctx)
	if err != nil {
		return nil, err
	}
	a, err := h.factory.New(id, nil, nil)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAggregateNotFound
	}
	return a, nil
}

// load fetches the aggregate's history (snapshot-anchored when a
// snapshot exists) and hands it to the factory to rebuild.
func (h *AggregateCommandHandler) load(ctx context.Context, id ID) (Aggregate, error) {
	events, err := h.store.GetAggregateEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	var snapshot *Event
	if len(events) > 0 && events[0].IsSnapshot() {
		snapshot = &events[0]
	}

	a, err := h.factory.New(id, events, snapshot)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAggregateNotFound
	}
	return a, nil
}
