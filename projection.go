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
	"sync/atomic"
	"time"
)

// ProjectionView is a mapping from ID to an opaque read-model value, with
// a Ready flag that is false until the Projection's initial replay
// completes.
type ProjectionView interface {
	// Has reports whether id has an entry.
	Has(ctx context.Context, id ID) (bool, error)
	// Get returns id's value, or ErrInvalidArgument if absent.
	Get(ctx context.Context, id ID) (any, error)
	// Create inserts value for id, failing if id already has an entry.
	Create(ctx context.Context, id ID, value any) error
	// Update replaces id's value, failing if id has no entry.
	Update(ctx context.Context, id ID, value any) error
	// UpsertUpdate applies update to id's current value (or to a
	// newly-created one if absent) and stores the result.
	UpsertUpdate(ctx context.Context, id ID, zero any, update func(any) any) error
	// UpdateAll applies update to every entry's value in place.
	UpdateAll(ctx context.Context, update func(ID, any) any) error
	// Delete removes id's entry, a no-op if absent.
	Delete(ctx context.Context, id ID) error
	// DeleteAll removes every entry.
	DeleteAll(ctx context.Context) error
	// Ready reports whether the view's initial replay has completed.
	Ready() bool
}

// MemoryProjectionView is an in-process ProjectionView backed by a mutex
// guarded map.
type MemoryProjectionView struct {
	mu    sync.RWMutex
	data  map[any]any
	ready atomic.Bool
}

// NewMemoryProjectionView creates an empty, not-yet-ready view.
func NewMemoryProjectionView() *MemoryProjectionView {
	return &MemoryProjectionView{data: make(map[any]any)}
}

func (v *MemoryProjectionView) Has(_ context.Context, id ID) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.data[id.Value()]
	return ok, nil
}

func (v *MemoryProjectionView) Get(_ context.Context, id ID) (any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[id.Value()]
	if !ok {
		return nil, ErrInvalidArgument
	}
	return val, nil
}

func (v *MemoryProjectionView) Create(_ context.Context, id ID, value any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.data[id.Value()]; ok {
		return ErrInvalidArgument
	}
	v.data[id.Value()] = value
	return nil
}

func (v *MemoryProjectionView) Update(_ context.Context, id ID, value any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.data[id.Value()]; !ok {
		return ErrInvalidArgument
	}
	v.data[id.Value()] = value
	return nil
}

func (v *MemoryProjectionView) UpsertUpdate(_ context.Context, id ID, zero any, update func(any) any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	cur, ok := v.data[id.Value()]
	if !ok {
		cur = zero
	}
	v.data[id.Value()] = update(cur)
	return nil
}

func (v *MemoryProjectionView) UpdateAll(_ context.Context, update func(ID, any) any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range v.data {
		v.data[k] = update(NewID(k), val)
	}
	return nil
}

func (v *MemoryProjectionView) Delete(_ context.Context, id ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.data, id.Value())
	return nil
}

func (v *MemoryProjectionView) DeleteAll(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = make(map[any]any)
	return nil
}

func (v *MemoryProjectionView) Ready() bool {
	return v.ready.Load()
}

func (v *MemoryProjectionView) markReady() {
	v.ready.Store(true)
}

// ProjectorFunc applies event to view.
type ProjectorFunc func(ctx context.Context, event Event, view ProjectionView) error

// Projection sequences delivery of events to a ProjectionView: a Replay
// pass walks the full committed log before live subscription starts, so
// readers never observe a view that has applied live events out of
// commit order relative to history.
type Projection struct {
	store   *EventStore
	project ProjectorFunc
	view    ProjectionView
	types   []string
	logger  Logger

	mu  sync.Mutex
	sub Subscription
}

// NewProjection builds a Projection that applies project to view for
// every event of types (all types if empty) flowing through store.
func NewProjection(store *EventStore, view ProjectionView, project ProjectorFunc, types ...string) *Projection {
	return &Projection{store: store, view: view, project: project, types: types, logger: defaultLogger{}}
}

// WithLogger overrides the default logger.
func (p *Projection) WithLogger(l Logger) *Projection {
	p.logger = l
	return p
}

// ProjectOption configures a single Project call.
type ProjectOption func(*projectOptions)

type projectOptions struct {
	noWait bool
}

// WithNoWait makes Project apply the event without blocking on the
// view's readiness, used for live delivery once Replay has already run.
func WithNoWait() ProjectOption {
	return func(o *projectOptions) { o.noWait = true }
}

// Replay applies every historical event matching the Projection's types,
// in commit order, then marks the view ready if it is a
// *MemoryProjectionView; other ProjectionView implementations are not
// marked.
func (p *Projection) Replay(ctx context.Context) error {
	seq, err := p.store.GetAllEvents(ctx, p.types...)
	if err != nil {
		return err
	}
	for event, err := range seq {
		if err != nil {
			return err
		}
		if err := p.project(ctx, event, p.view); err != nil {
			return err
		}
	}
	if mv, ok := p.view.(*MemoryProjectionView); ok {
		mv.markReady()
	}
	return nil
}

// Project applies event to the view. Unless WithNoWait is given, it
// blocks until the view reports Ready so a live event delivered before
// Replay completes does not race ahead of history.
func (p *Projection) Project(ctx context.Context, event Event, opts ...ProjectOption) error {
	o := projectOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.noWait {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for !p.view.Ready() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	return p.project(ctx, event, p.view)
}

// Subscribe registers the Projection on bus for every one of its types,
// dispatching live delivery to Project with WithNoWait (Replay is
// expected to have already caught the view up to the point subscription
// started).
func (p *Projection) Subscribe(bus MessageBus) error {
	types := p.types
	if len(types) == 0 {
		types = []string{wildcardEventType}
	}
	for _, t := range types {
		sub, err := bus.On(t, func(ctx context.Context, e Event) error {
			return p.Project(ctx, e, WithNoWait())
		})
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.sub = sub
		p.mu.Unlock()
	}
	return nil
}
