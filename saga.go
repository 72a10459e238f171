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

import "context"

// Saga is a long-lived process that reacts to events by producing
// commands. Unlike an Aggregate, a Saga is rehydrated by replaying its
// own event stream up to, but not including, the event currently being
// applied.
type Saga interface {
	// ID returns the saga's identity.
	ID() ID
	// Version returns the version of the last event folded into state.
	Version() uint64
	// Handles lists the event types this saga reacts to.
	Handles() []string

	// Apply folds event into the saga's state and may append to
	// UncommittedMessages.
	Apply(ctx context.Context, event Event) error

	// UncommittedMessages returns the commands produced since the last
	// ResetUncommittedMessages call.
	UncommittedMessages() []Command
	// ResetUncommittedMessages empties the uncommitted-message buffer.
	ResetUncommittedMessages()
}

// SagaErrorHandler is the optional capability of a Saga to recover from
// an error raised while dispatching its produced commands, by returning a
// replacement set of compensating commands to dispatch instead.
type SagaErrorHandler interface {
	OnError(ctx context.Context, err error, event Event, cmd Command) []Command
}

// SagaFactory builds a saga hydrated from its prior history.
type SagaFactory struct {
	// New builds the saga identified by id.
	New func(id ID) Saga
	// Handles lists the event types routed to this saga type.
	Handles []string
}

// SagaEventHandler rehydrates a saga from its event history, applies an
// incoming event, and dispatches the commands the saga produced.
type SagaEventHandler struct {
	store      *EventStore
	bus        CommandSubscriber
	sender     commandSender
	factory    SagaFactory
	logger     Logger
	reschedule func(Command)
}

// commandSender is the subset of CommandBus a SagaEventHandler needs to
// dispatch the commands its sagas produce.
type commandSender interface {
	SendRaw(ctx context.Context, cmd Command) (EventStream, error)
}

// NewSagaEventHandler builds a handler that rehydrates and applies
// factory's saga type against store, dispatching produced commands
// through sender.
func NewSagaEventHandler(store *EventStore, sender commandSender, factory SagaFactory) *SagaEventHandler {
	return &SagaEventHandler{store: store, sender: sender, factory: factory, logger: defaultLogger{}}
}

// WithLogger overrides the default logger.
func (h *SagaEventHandler) WithLogger(l Logger) *SagaEventHandler {
	h.logger = l
	return h
}

// WithRescheduler registers a hook invoked for every compensating command
// whose dispatch itself fails, instead of only logging it. Pass
// func(cmd) { scheduler.Enqueue(cmd) } to redeliver on a cron schedule via
// the scheduler package.
func (h *SagaEventHandler) WithRescheduler(reschedule func(Command)) *SagaEventHandler {
	h.reschedule = reschedule
	return h
}

// Subscribe registers h against bus for every event type its factory
// handles.
func (h *SagaEventHandler) Subscribe(bus MessageBus) error {
	for _, eventType := range h.factory.Handles {
		if _, err := bus.On(eventType, h.HandleEvent); err != nil {
			return err
		}
	}
	return nil
}

// HandleEvent rehydrates the saga addressed by event.SagaID, applies
// event, and dispatches whatever commands the saga produced. If event
// carries no SagaID, it is treated as saga-starting: a fresh ID is
// allocated and a new saga instantiated with no history. Dispatch errors
// are routed to the saga's SagaErrorHandler, if it implements one, and
// otherwise logged; they never propagate back to the bus Publish call
// that triggered delivery.
func (h *SagaEventHandler) HandleEvent(ctx context.Context, event Event) error {
	sagaID := event.SagaID
	if sagaID.IsZero() {
		id, err := h.store.GetNewID(ctx)
		if err != nil {
			return err
		}
		sagaID = id
	}

	s := h.factory.New(sagaID)
	if s == nil {
		return nil
	}

	if !event.SagaID.IsZero() && event.SagaVersion != nil && *event.SagaVersion > 0 {
		history, err := h.store.GetSagaEvents(ctx, event.SagaID, event)
		if err != nil {
			return err
		}
		for _, e := range history {
			if err := s.Apply(ctx, e); err != nil {
				return err
			}
		}
		s.ResetUncommittedMessages()
	}

	if err := s.Apply(ctx, event); err != nil {
		return err
	}

	commands := s.UncommittedMessages()
	s.ResetUncommittedMessages()

	for _, cmd := range commands {
		if _, err := h.sender.SendRaw(ctx, cmd); err != nil {
			if eh, ok := s.(SagaErrorHandler); ok {
				for _, compensate := range eh.OnError(ctx, err, event, cmd) {
					if _, cerr := h.sender.SendRaw(ctx, compensate); cerr != nil {
						if h.reschedule != nil {
							h.reschedule(compensate)
							continue
						}
						h.logger.Error(ctx, "saga compensation dispatch failed", "error", cerr)
					}
				}
				continue
			}
			h.logger.Error(ctx, "saga command dispatch failed", "error", err)
		}
	}
	return nil
}

// SagaBase is an embeddable implementation of the bookkeeping shared by
// every Saga: identity, version tracking, and the pending message buffer.
type SagaBase struct {
	id       ID
	version  uint64
	messages []Command
}

// NewSagaBase creates a SagaBase identified by id.
func NewSagaBase(id ID) *SagaBase {
	return &SagaBase{id: id}
}

func (s *SagaBase) ID() ID          { return s.id }
func (s *SagaBase) Version() uint64 { return s.version }

// Dispatch appends cmd to the pending message buffer, stamped with this
// saga's ID and next version.
func (s *SagaBase) Dispatch(cmd Command) {
	s.version++
	v := s.version
	cmd.SagaID = s.id
	cmd.SagaVersion = &v
	s.messages = append(s.messages, cmd)
}

func (s *SagaBase) UncommittedMessages() []Command { return s.messages }
func (s *SagaBase) ResetUncommittedMessages()      { s.messages = nil }

// MarkApplied advances the version counter to event's SagaVersion, used
// while folding a replayed or incoming event that did not itself
// originate a Dispatch call.
func (s *SagaBase) MarkApplied(event Event) {
	if event.SagaVersion != nil && *event.SagaVersion > s.version {
		s.version = *event.SagaVersion
	}
}
