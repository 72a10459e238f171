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
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStorage is a minimal in-memory EventStorage used only by the root
// package's own tests; the durable drivers live under eventstore/.
type memStorage struct {
	mu         sync.Mutex
	nextID     int
	newIDCalls int
	events     []Event
	failOn     string
}

func newMemStorage() *memStorage {
	return &memStorage{}
}

func (m *memStorage) NewID(context.Context) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.newIDCalls++
	return NewID(m.nextID), nil
}

func (m *memStorage) CommitEvents(_ context.Context, events []Event) error {
	if m.failOn == "CommitEvents" {
		return errors.New("commit failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *memStorage) AggregateEvents(_ context.Context, id ID, afterVersion *uint64) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if !e.AggregateID.Equal(id) {
			continue
		}
		if afterVersion != nil && (e.AggregateVersion == nil || *e.AggregateVersion <= *afterVersion) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStorage) SagaEvents(_ context.Context, sagaID ID, beforeVersion uint64) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if !e.SagaID.Equal(sagaID) {
			continue
		}
		if e.SagaVersion == nil || *e.SagaVersion >= beforeVersion {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStorage) AllEvents(_ context.Context, types ...string) (iter.Seq2[Event, error], error) {
	m.mu.Lock()
	events := append([]Event(nil), m.events...)
	m.mu.Unlock()
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(yield func(Event, error) bool) {
		for _, e := range events {
			if len(set) > 0 {
				if _, ok := set[e.Type]; !ok {
					continue
				}
			}
			if !yield(e, nil) {
				return
			}
		}
	}, nil
}

// memSnapshots is a minimal in-memory SnapshotStorage.
type memSnapshots struct {
	mu   sync.Mutex
	byID map[any]Event
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{byID: make(map[any]Event)}
}

func (m *memSnapshots) AggregateSnapshot(_ context.Context, id ID) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id.Value()]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memSnapshots) SaveAggregateSnapshot(_ context.Context, event Event) error {
	if event.AggregateID.IsZero() {
		return ErrMissingAggregateID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[event.AggregateID.Value()] = event
	return nil
}

func TestEventStoreCommitPersistsAndPublishes(t *testing.T) {
	storage := newMemStorage()
	store := NewEventStore(storage, WithSynchronousPublish())

	var received []Event
	var mu sync.Mutex
	_, err := store.On("CustomerMoved", func(_ context.Context, e Event) error {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	id := NewID("cust-1")
	committed, err := store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(1))
	require.NoError(t, err)
	require.Len(t, committed, 1)
	require.False(t, committed[0].Timestamp.IsZero())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
}

func TestEventStoreCommitRejectsEmptyBatch(t *testing.T) {
	store := NewEventStore(newMemStorage())
	_, err := store.Commit(context.Background())
	require.ErrorIs(t, err, ErrNoEventsToCommit)
}

func TestEventStoreCommitValidatesEvents(t *testing.T) {
	store := NewEventStore(newMemStorage())
	_, err := store.Commit(context.Background(), Event{Type: "CustomerMoved"})
	require.Error(t, err)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
}

func TestEventStoreCommitAssignsSagaIDToStarter(t *testing.T) {
	storage := newMemStorage()
	store := NewEventStore(storage, WithSynchronousPublish())
	store.RegisterSagaStarters("OrderPlaced")

	id := NewID("order-1")
	committed, err := store.Commit(context.Background(), Event{Type: "OrderPlaced", AggregateID: id}.WithVersion(1))
	require.NoError(t, err)
	require.False(t, committed[0].SagaID.IsZero())
	require.NotNil(t, committed[0].SagaVersion)
	require.Equal(t, uint64(0), *committed[0].SagaVersion)
}

func TestEventStoreCommitRejectsPrestampedSagaStarter(t *testing.T) {
	store := NewEventStore(newMemStorage())
	store.RegisterSagaStarters("OrderPlaced")

	version := uint64(0)
	_, err := store.Commit(context.Background(), Event{
		Type: "OrderPlaced", AggregateID: NewID("order-1"), SagaID: NewID("saga-1"), SagaVersion: &version,
	})
	require.ErrorIs(t, err, ErrSagaAlreadyStarted)
}

func TestEventStoreCommitRejectsSnapshotWithoutStorage(t *testing.T) {
	store := NewEventStore(newMemStorage())
	_, err := store.Commit(context.Background(), Event{Type: SnapshotEventType, AggregateID: NewID("cust-1")})
	require.ErrorIs(t, err, ErrSnapshotsUnsupported)
}

func TestEventStoreCommitRejectsMultipleSnapshots(t *testing.T) {
	snapshots := newMemSnapshots()
	store := NewEventStore(newMemStorage(), WithSnapshotStorage(snapshots))
	id := NewID("cust-1")
	_, err := store.Commit(context.Background(),
		Event{Type: SnapshotEventType, AggregateID: id},
		Event{Type: SnapshotEventType, AggregateID: id},
	)
	require.ErrorIs(t, err, ErrMultipleSnapshots)
}

func TestEventStoreCommitRejectsSnapshotWithoutAggregateID(t *testing.T) {
	snapshots := newMemSnapshots()
	store := NewEventStore(newMemStorage(), WithSnapshotStorage(snapshots))
	_, err := store.Commit(context.Background(), Event{Type: SnapshotEventType})
	require.ErrorIs(t, err, ErrMissingAggregateID)
}

func TestEventStoreCommitPersistsSnapshotAlongsideEvents(t *testing.T) {
	snapshots := newMemSnapshots()
	store := NewEventStore(newMemStorage(), WithSnapshotStorage(snapshots), WithSynchronousPublish())
	id := NewID("cust-1")

	_, err := store.Commit(context.Background(),
		Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(1),
		Event{Type: SnapshotEventType, AggregateID: id, Payload: "state-v1"}.WithVersion(1),
	)
	require.NoError(t, err)

	snap, err := snapshots.AggregateSnapshot(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "state-v1", snap.Payload)
}

func TestEventStoreCommitContextCanceled(t *testing.T) {
	store := NewEventStore(newMemStorage())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Commit(ctx, Event{Type: "CustomerMoved", AggregateID: NewID("cust-1")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEventStoreGetAggregateEventsPrependsSnapshot(t *testing.T) {
	storage := newMemStorage()
	snapshots := newMemSnapshots()
	store := NewEventStore(storage, WithSnapshotStorage(snapshots), WithSynchronousPublish())
	id := NewID("cust-1")

	_, err := store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(1))
	require.NoError(t, err)
	require.NoError(t, snapshots.SaveAggregateSnapshot(context.Background(),
		Event{Type: SnapshotEventType, AggregateID: id, Payload: "v1"}.WithVersion(1)))
	_, err = store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(2))
	require.NoError(t, err)

	stream, err := store.GetAggregateEvents(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, stream, 2)
	require.True(t, stream[0].IsSnapshot())
	require.Equal(t, uint64(2), *stream[1].AggregateVersion)
}

func TestEventStoreGetSagaEventsRequiresSagaVersion(t *testing.T) {
	store := NewEventStore(newMemStorage())
	_, err := store.GetSagaEvents(context.Background(), NewID("saga-1"), Event{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEventStoreGetAllEventsFiltersByType(t *testing.T) {
	storage := newMemStorage()
	store := NewEventStore(storage, WithSynchronousPublish())
	id := NewID("cust-1")
	_, err := store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(1))
	require.NoError(t, err)
	_, err = store.Commit(context.Background(), Event{Type: "CustomerRenamed", AggregateID: id}.WithVersion(2))
	require.NoError(t, err)

	seq, err := store.GetAllEvents(context.Background(), "CustomerMoved")
	require.NoError(t, err)
	var got []Event
	for e, err := range seq {
		require.NoError(t, err)
		got = append(got, e)
	}
	require.Len(t, got, 1)
	require.Equal(t, "CustomerMoved", got[0].Type)
}

func TestEventStoreQueueRequiresQueueingBus(t *testing.T) {
	store := NewEventStore(newMemStorage(), WithMessageBus(noopBus{}))
	_, err := store.Queue("workers")
	require.ErrorIs(t, err, ErrUnsupportedCapability)
}

func TestEventStoreOnceBlocksUntilMatch(t *testing.T) {
	store := NewEventStore(newMemStorage(), WithSynchronousPublish())
	id := NewID("cust-1")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = store.Commit(context.Background(), Event{Type: "CustomerCreated", AggregateID: id}.WithVersion(1))
		_, _ = store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(2))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := store.Once(ctx, []string{"CustomerMoved"}, nil, func(context.Context, Event) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "CustomerMoved", got.Type)
}

func TestEventStoreOnceRespectsFilter(t *testing.T) {
	store := NewEventStore(newMemStorage(), WithSynchronousPublish())
	wantID := NewID("cust-2")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: NewID("cust-1")}.WithVersion(1))
		_, _ = store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: wantID}.WithVersion(1))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := store.Once(ctx, []string{"CustomerMoved"}, MatchAggregate(wantID), func(context.Context, Event) error { return nil })
	require.NoError(t, err)
	require.True(t, got.AggregateID.Equal(wantID))
}

func TestEventStoreOnceAllowsNilHandler(t *testing.T) {
	store := NewEventStore(newMemStorage(), WithSynchronousPublish())
	id := NewID("cust-1")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = store.Commit(context.Background(), Event{Type: "CustomerMoved", AggregateID: id}.WithVersion(1))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := store.Once(ctx, []string{"CustomerMoved"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "CustomerMoved", got.Type)
}

func TestEventStoreOnceCancelUnblocks(t *testing.T) {
	store := NewEventStore(newMemStorage())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := store.Once(ctx, []string{"Never"}, nil, func(context.Context, Event) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// noopBus is a MessageBus that does not implement QueueingBus.
type noopBus struct{}

func (noopBus) On(string, EventHandlerFunc) (Subscription, error) { return nil, nil }
func (noopBus) Off(Subscription) error                            { return nil }
func (noopBus) Publish(context.Context, Event) error              { return nil }
