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
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"
)

// EventStore is the runtime core: it routes commits through validation,
// saga-starter ID assignment, durable persistence and publication, and
// gives handlers a uniform way to read history and subscribe to new
// events, regardless of which storage and bus drivers are plugged in.
type EventStore struct {
	storage   EventStorage
	snapshots SnapshotStorage
	validate  Validator
	logger    Logger

	bus      MessageBus
	subbable interface {
		On(eventType string, handler EventHandlerFunc) (Subscription, error)
		Off(sub Subscription) error
	}

	mu           sync.RWMutex
	sagaStarters map[string]bool

	synchronous bool
}

// Option configures an EventStore at construction time.
type Option func(*EventStore)

// WithMessageBus overrides the automatically selected MessageBus (spec
// §4.1.4).
func WithMessageBus(bus MessageBus) Option {
	return func(s *EventStore) { s.bus = bus }
}

// WithSnapshotStorage enables snapshot persistence.
func WithSnapshotStorage(store SnapshotStorage) Option {
	return func(s *EventStore) { s.snapshots = store }
}

// WithValidator overrides DefaultValidate.
func WithValidator(v Validator) Option {
	return func(s *EventStore) { s.validate = v }
}

// WithLogger overrides the default logger.
func WithLogger(l Logger) Option {
	return func(s *EventStore) { s.logger = l }
}

// WithSynchronousPublish makes Commit await every publish before
// returning, and surfaces publish errors to the caller. The default is
// asynchronous: Commit returns once persistence succeeds, and publish is
// fire-and-forget on a goroutine, with publish errors only ever reaching
// the Logger.
func WithSynchronousPublish() Option {
	return func(s *EventStore) { s.synchronous = true }
}

// NewEventStore constructs an EventStore backed by storage, applying opts
// in order. The bus is selected per spec §4.1.4 unless WithMessageBus is
// given.
func NewEventStore(storage EventStorage, opts ...Option) *EventStore {
	s := &EventStore{
		storage:      storage,
		validate:     DefaultValidate,
		logger:       defaultLogger{},
		sagaStarters: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus != nil {
		s.subbable = s.bus
	} else {
		bus, sub := selectBus(nil, storage)
		s.bus = bus
		s.subbable = sub
	}
	return s
}

// GetNewID allocates a fresh, storage-unique ID.
func (s *EventStore) GetNewID(ctx context.Context) (ID, error) {
	id, err := s.storage.NewID(ctx)
	if err != nil {
		return ID{}, &StorageError{Op: "NewID", Err: err}
	}
	return id, nil
}

// GetAggregateEvents returns id's history as a single stream. If
// snapshot storage is configured and a snapshot exists for id, the
// stream begins with that snapshot event, followed by every event
// committed after the version it captures.
func (s *EventStore) GetAggregateEvents(ctx context.Context, id ID) (EventStream, error) {
	var after *uint64
	var snapshot *Event
	if s.snapshots != nil {
		snap, err := s.snapshots.AggregateSnapshot(ctx, id)
		if err != nil {
			return nil, &StorageError{Op: "AggregateSnapshot", Err: err}
		}
		if snap != nil {
			snapshot = snap
			after = snap.AggregateVersion
		}
	}
	events, err := s.storage.AggregateEvents(ctx, id, after)
	if err != nil {
		return nil, &StorageError{Op: "AggregateEvents", Err: err}
	}
	if snapshot == nil {
		return events, nil
	}
	return append(append(EventStream{}, *snapshot), events...), nil
}

// GetSagaEvents returns the events committed for sagaID strictly before
// beforeEvent's SagaVersion, in commit order. beforeEvent.SagaVersion
// must be set.
func (s *EventStore) GetSagaEvents(ctx context.Context, sagaID ID, beforeEvent Event) (EventStream, error) {
	if beforeEvent.SagaVersion == nil {
		return nil, ErrInvalidArgument
	}
	events, err := s.storage.SagaEvents(ctx, sagaID, *beforeEvent.SagaVersion)
	if err != nil {
		return nil, &StorageError{Op: "SagaEvents", Err: err}
	}
	return events, nil
}

// GetAllEvents returns a lazy cross-aggregate sequence of events,
// optionally filtered by type, used to replay a Projection from the
// start of the log.
func (s *EventStore) GetAllEvents(ctx context.Context, types ...string) (iter.Seq2[Event, error], error) {
	seq, err := s.storage.AllEvents(ctx, types...)
	if err != nil {
		return nil, &StorageError{Op: "AllEvents", Err: err}
	}
	return seq, nil
}

// RegisterSagaStarters marks eventTypes as saga starters: a Commit
// containing an event of one of these types with no SagaID set will have
// a fresh saga ID minted and stamped onto it. Registration is idempotent.
func (s *EventStore) RegisterSagaStarters(eventTypes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range eventTypes {
		s.sagaStarters[t] = true
	}
}

func (s *EventStore) isSagaStarter(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sagaStarters[eventType]
}

// Commit validates, saga-stamps, durably persists, and publishes events
// as a single atomic unit: either every non-snapshot event and the
// snapshot (if any) are both persisted and the whole batch is published,
// or nothing is published. Returns the committed non-snapshot stream. See
// spec §4.1.1 for the six-step algorithm this implements.
func (s *EventStore) Commit(ctx context.Context, events ...Event) (EventStream, error) {
	if len(events) == 0 {
		return nil, ErrNoEventsToCommit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	var snapshot *Event
	rest := make([]Event, 0, len(events))

	for _, e := range events {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		if e.IsSnapshot() {
			if snapshot != nil {
				return nil, ErrMultipleSnapshots
			}
			snapshot = &e
			continue
		}
		if err := s.validate(e); err != nil {
			return nil, &StorageError{Op: "Validate", Err: fmt.Errorf("%w: %w", ErrInvalidEvent, err)}
		}
		if s.isSagaStarter(e.Type) {
			if !e.SagaID.IsZero() {
				return nil, ErrSagaAlreadyStarted
			}
			id, err := s.storage.NewID(ctx)
			if err != nil {
				return nil, &StorageError{Op: "NewID", Err: err}
			}
			e = e.WithSaga(id, 0)
		}
		rest = append(rest, e)
	}
	if snapshot != nil && s.snapshots == nil {
		return nil, ErrSnapshotsUnsupported
	}
	if snapshot != nil && snapshot.AggregateID.IsZero() {
		return nil, ErrMissingAggregateID
	}

	if err := s.persist(ctx, rest, snapshot); err != nil {
		return nil, err
	}

	if s.synchronous {
		if err := s.publishAll(ctx, rest); err != nil {
			return rest, err
		}
		return rest, nil
	}

	go s.publishAll(context.WithoutCancel(ctx), rest)
	return rest, nil
}

// persist durably appends rest and saves snapshot (if any) concurrently,
// the two storage operations having no ordering dependency on each
// other.
func (s *EventStore) persist(ctx context.Context, rest []Event, snapshot *Event) error {
	if snapshot == nil {
		if len(rest) == 0 {
			return nil
		}
		if err := s.storage.CommitEvents(ctx, rest); err != nil {
			return &StorageError{Op: "CommitEvents", Err: err}
		}
		return nil
	}

	var wg sync.WaitGroup
	var eventsErr, snapshotErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		if len(rest) > 0 {
			eventsErr = s.storage.CommitEvents(ctx, rest)
		}
	}()
	go func() {
		defer wg.Done()
		snapshotErr = s.snapshots.SaveAggregateSnapshot(ctx, *snapshot)
	}()
	wg.Wait()

	if eventsErr != nil || snapshotErr != nil {
		return &CommitPartialFailureError{EventsErr: eventsErr, SnapshotErr: snapshotErr}
	}
	return nil
}

func (s *EventStore) publishAll(ctx context.Context, events []Event) error {
	if s.bus == nil {
		return nil
	}
	for _, e := range events {
		if err := s.bus.Publish(ctx, e); err != nil {
			werr := &PublishError{Event: e, Err: err}
			if !s.synchronous {
				s.logger.Error(ctx, "publish failed", "error", werr)
				continue
			}
			return werr
		}
	}
	return nil
}

// On subscribes handler to every future event of eventType.
func (s *EventStore) On(eventType string, handler EventHandlerFunc) (Subscription, error) {
	if s.subbable == nil {
		return nil, ErrUnsupportedCapability
	}
	return s.subbable.On(eventType, handler)
}

// Off removes a subscription previously returned by On or Queue.
func (s *EventStore) Off(sub Subscription) error {
	if s.subbable == nil {
		return ErrUnsupportedCapability
	}
	return s.subbable.Off(sub)
}

// Queue returns the named single-consumer queue. Fails with
// ErrUnsupportedCapability unless the configured bus implements
// QueueingBus.
func (s *EventStore) Queue(name string) (Queue, error) {
	qb, ok := s.bus.(QueueingBus)
	if !ok {
		return nil, ErrUnsupportedCapability
	}
	return qb.Queue(name)
}

// Once blocks until an event of one of types satisfying filter is
// published, invokes handler with it if handler is non-nil, and returns
// it. A nil filter matches every event of the given types; empty types
// subscribes to every type. A nil handler is a valid way to just await
// and return the matching event.
//
// Concurrent deliveries racing to satisfy filter invoke handler at most
// once: a CAS-guarded "handled" flag arbitrates, so only the event that
// wins the race is passed to handler and returned. Cancelling ctx before
// a match arrives aborts the wait, unsubscribes, and returns ctx.Err();
// this is the cancel handle callers use to abandon a Once call without
// leaking a subscription.
func (s *EventStore) Once(ctx context.Context, types []string, filter Matcher, handler EventHandlerFunc) (Event, error) {
	if s.subbable == nil {
		return Event{}, ErrUnsupportedCapability
	}
	if filter == nil {
		filter = MatchAny()
	}
	if len(types) == 0 {
		types = []string{wildcardEventType}
	}

	var handled atomic.Bool
	result := make(chan Event, 1)
	errCh := make(chan error, 1)
	var subsMu sync.Mutex
	var subs []Subscription

	unsubscribeAll := func() {
		subsMu.Lock()
		defer subsMu.Unlock()
		for _, sub := range subs {
			_ = s.subbable.Off(sub)
		}
	}

	onEvent := func(ctx context.Context, e Event) error {
		if !filter(e) {
			return nil
		}
		if !handled.CompareAndSwap(false, true) {
			return nil
		}
		unsubscribeAll()
		var err error
		if handler != nil {
			err = handler(ctx, e)
		}
		if err != nil {
			errCh <- err
		} else {
			result <- e
		}
		return err
	}

	for _, t := range types {
		sub, err := s.subbable.On(t, onEvent)
		if err != nil {
			unsubscribeAll()
			return Event{}, err
		}
		subsMu.Lock()
		subs = append(subs, sub)
		subsMu.Unlock()
	}

	select {
	case e := <-result:
		return e, nil
	case err := <-errCh:
		return Event{}, err
	case <-ctx.Done():
		handled.Store(true)
		unsubscribeAll()
		return Event{}, ctx.Err()
	}
}

const wildcardEventType = "*"
