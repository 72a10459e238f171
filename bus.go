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

// EventHandlerFunc handles a single delivered event.
type EventHandlerFunc func(ctx context.Context, event Event) error

// Subscription is a handle to a bus registration, returned by On/Queue and
// used to unsubscribe via Off.
type Subscription interface {
	// EventType is the message type this subscription was registered for.
	EventType() string
}

// MessageBus is a topic-indexed publish/subscribe transport. Publish
// delivers event to every handler registered for event.Type; the delivery
// order across handlers is unspecified, but no handler observes an event
// before Publish is called for it.
type MessageBus interface {
	// On registers handler for eventType. A handler never sees an event
	// of a type it was not registered for.
	On(eventType string, handler EventHandlerFunc) (Subscription, error)

	// Off unregisters a previously returned Subscription. Off on an
	// already-removed Subscription is a no-op.
	Off(sub Subscription) error

	// Publish delivers event to every handler registered for its type,
	// and to at most one handler per named queue registered for its type.
	Publish(ctx context.Context, event Event) error
}

// Queue is a named, single-consumer subscription: of all handlers
// registered on the same queue name for a type, exactly one receives each
// published event of that type.
type Queue interface {
	// Name is the queue's name.
	Name() string
	// On registers handler as one of this queue's consumers for
	// eventType.
	On(eventType string, handler EventHandlerFunc) (Subscription, error)
}

// QueueingBus is the optional capability of a MessageBus that supports
// named single-consumer queues. Probed for at construction time; calling
// EventStore.Queue against a bus that does not implement this interface
// fails with ErrUnsupportedCapability.
type QueueingBus interface {
	MessageBus

	// Queue returns (creating if necessary) the named queue.
	Queue(name string) (Queue, error)
}

// CommandHandlerFunc handles a single dispatched command and reports the
// events committed while handling it.
type CommandHandlerFunc func(ctx context.Context, cmd Command) (EventStream, error)

// CommandSubscriber is the subset of CommandBus that an
// AggregateCommandHandler needs in order to self-register (spec §4.2).
type CommandSubscriber interface {
	SetHandler(commandType string, handler CommandHandlerFunc) error
}

// CommandBus routes commands by type to a single registered handler.
type CommandBus interface {
	CommandSubscriber

	// Send builds and dispatches a command of commandType addressed at
	// aggregateID, and returns the events committed while handling it.
	Send(ctx context.Context, commandType string, aggregateID ID, payload, cmdCtx any) (EventStream, error)

	// SendRaw dispatches cmd as-is and returns the events committed while
	// handling it.
	SendRaw(ctx context.Context, cmd Command) (EventStream, error)
}

// selectBus implements the bus-selection design of spec §4.1.4: use an
// explicitly supplied bus if any; otherwise try the storage's own
// subscription surface (subscribe-only); otherwise fall back to the
// built-in local bus.
func selectBus(explicit MessageBus, storage EventStorage) (publish MessageBus, subscribe interface {
	On(eventType string, handler EventHandlerFunc) (Subscription, error)
	Off(sub Subscription) error
}) {
	if explicit != nil {
		return explicit, explicit
	}
	if sub, ok := storage.(EventSubscriber); ok {
		return nil, storageSubscribeAdapter{sub}
	}
	b := newLocalBus()
	return b, b
}

// storageSubscribeAdapter adapts an EventSubscriber (subscribe-only) to
// the On/Off shape used internally, with Off unsupported since the core
// EventStorage contract has no unsubscribe primitive.
type storageSubscribeAdapter struct {
	sub EventSubscriber
}

func (a storageSubscribeAdapter) On(eventType string, handler EventHandlerFunc) (Subscription, error) {
	return a.sub.Subscribe(eventType, handler)
}

func (a storageSubscribeAdapter) Off(Subscription) error {
	return ErrUnsupportedCapability
}
