// Copyright (c) 2016 - The Event Horizon authors.
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

// Package testutil holds a shared acceptance-test suite for
// streamkit.EventStorage and streamkit.SnapshotStorage drivers, run by
// the eventstore/memory, eventstore/mongodb and snapshotstore/redis tests
// so those backends are held to the same contract.
package testutil

import (
	"context"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
	"github.com/streamkit/streamkit/uuid"
)

// EventStorageAcceptanceTest runs the shared EventStorage contract
// against store: commit, aggregate-scoped read, saga-scoped read, and
// type-filtered full-log read.
func EventStorageAcceptanceTest(t *testing.T, ctx context.Context, store streamkit.EventStorage) {
	t.Helper()

	aggregateID := streamkit.NewID(uuid.New())
	otherID := streamkit.NewID(uuid.New())

	event1 := streamkit.Event{Type: "Event1", AggregateID: aggregateID, AggregateVersion: ptr(uint64(1))}
	event2 := streamkit.Event{Type: "Event2", AggregateID: aggregateID, AggregateVersion: ptr(uint64(2))}
	event3 := streamkit.Event{Type: "Event1", AggregateID: otherID, AggregateVersion: ptr(uint64(1))}

	require.NoError(t, store.CommitEvents(ctx, []streamkit.Event{event1, event2}))
	require.NoError(t, store.CommitEvents(ctx, []streamkit.Event{event3}))

	events, err := store.AggregateEvents(ctx, aggregateID, nil)
	require.NoError(t, err)
	require.Len(t, events, 2, "%# v", pretty.Formatter(events))
	require.Equal(t, "Event1", events[0].Type)
	require.Equal(t, "Event2", events[1].Type)

	after := ptr(uint64(1))
	resumed, err := store.AggregateEvents(ctx, aggregateID, after)
	require.NoError(t, err)
	require.Len(t, resumed, 1)
	require.Equal(t, "Event2", resumed[0].Type)

	otherEvents, err := store.AggregateEvents(ctx, otherID, nil)
	require.NoError(t, err)
	require.Len(t, otherEvents, 1)

	missing, err := store.AggregateEvents(ctx, streamkit.NewID(uuid.New()), nil)
	require.NoError(t, err)
	require.Empty(t, missing)

	seq, err := store.AllEvents(ctx, "Event1")
	require.NoError(t, err)
	var onlyType1 []streamkit.Event
	for e, err := range seq {
		require.NoError(t, err)
		onlyType1 = append(onlyType1, e)
	}
	require.Len(t, onlyType1, 2)
}

// SagaStorageAcceptanceTest runs the saga-scoped slice of the
// EventStorage contract: events sharing a SagaID are retrievable
// strictly before a given SagaVersion.
func SagaStorageAcceptanceTest(t *testing.T, ctx context.Context, store streamkit.EventStorage) {
	t.Helper()

	sagaID := streamkit.NewID(uuid.New())
	aggregateID := streamkit.NewID(uuid.New())

	e1 := streamkit.Event{Type: "Started", AggregateID: aggregateID, SagaID: sagaID, SagaVersion: ptr(uint64(0))}
	e2 := streamkit.Event{Type: "Continued", AggregateID: aggregateID, SagaID: sagaID, SagaVersion: ptr(uint64(1))}
	require.NoError(t, store.CommitEvents(ctx, []streamkit.Event{e1, e2}))

	before, err := store.SagaEvents(ctx, sagaID, 1)
	require.NoError(t, err)
	require.Len(t, before, 1)
	require.Equal(t, "Started", before[0].Type)

	all, err := store.SagaEvents(ctx, sagaID, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

// SnapshotStorageAcceptanceTest runs the shared SnapshotStorage
// contract: save replaces, absent returns nil, missing AggregateID
// fails.
func SnapshotStorageAcceptanceTest(t *testing.T, ctx context.Context, store streamkit.SnapshotStorage) {
	t.Helper()

	id := streamkit.NewID(uuid.New())

	none, err := store.AggregateSnapshot(ctx, id)
	require.NoError(t, err)
	require.Nil(t, none)

	snap1 := streamkit.Event{Type: streamkit.SnapshotEventType, AggregateID: id, AggregateVersion: ptr(uint64(5)), Payload: "state-v5"}
	require.NoError(t, store.SaveAggregateSnapshot(ctx, snap1))

	got, err := store.AggregateSnapshot(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "state-v5", got.Payload)

	snap2 := streamkit.Event{Type: streamkit.SnapshotEventType, AggregateID: id, AggregateVersion: ptr(uint64(10)), Payload: "state-v10"}
	require.NoError(t, store.SaveAggregateSnapshot(ctx, snap2))

	latest, err := store.AggregateSnapshot(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "state-v10", latest.Payload)

	err = store.SaveAggregateSnapshot(ctx, streamkit.Event{Type: streamkit.SnapshotEventType})
	require.ErrorIs(t, err, streamkit.ErrMissingAggregateID)
}

func ptr[T any](v T) *T { return &v }
