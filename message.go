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

import "time"

// Message is the shape shared by Command and Event: a type name, optional
// aggregate/saga addressing, an opaque payload and an opaque caller context.
//
// A command name should be in present tense (MoveCustomer); an event name
// should be in past tense (CustomerMoved). Both are expressed with the same
// struct since the core treats them identically — only the caller's usage
// gives them their semantic role.
type Message struct {
	// Type is the message's type name. Never empty for a valid message.
	Type string

	// AggregateID addresses the aggregate this message concerns. At least
	// one of AggregateID or SagaID must be set on a committed Event.
	AggregateID ID
	// AggregateVersion is the version of the aggregate this event was
	// produced at (for events emitted by an aggregate) or nil.
	AggregateVersion *uint64

	// SagaID addresses the saga this message concerns, if any.
	SagaID ID
	// SagaVersion is required whenever SagaID is set.
	SagaVersion *uint64

	// Payload carries the message-specific data. Opaque to the core.
	Payload any
	// Context carries caller-supplied context data (e.g. a marshaled
	// request context) that travels with the message. Opaque to the core.
	Context any

	// Timestamp is set by EventStore.Commit when an event is committed
	// with a zero Timestamp; commands are not stamped. It is not part of
	// the wire contract but is useful for storage backends and
	// observability.
	Timestamp time.Time
}

// Command is a domain command: intent to change an aggregate's state.
type Command = Message

// Event is a domain event: a fact describing a change that already
// happened to an aggregate.
type Event = Message

// EventStream is a finite ordered sequence of events. Ordering is the
// commit order for a given aggregate or saga; it is the only ordering
// guarantee the core makes.
type EventStream = []Event

// IsSnapshot reports whether m is a reserved snapshot event.
func (m Message) IsSnapshot() bool {
	return m.Type == SnapshotEventType
}

// WithVersion returns a copy of m with AggregateVersion set to v.
func (m Message) WithVersion(v uint64) Message {
	m.AggregateVersion = &v
	return m
}

// WithSaga returns a copy of m with SagaID and SagaVersion set.
func (m Message) WithSaga(id ID, version uint64) Message {
	m.SagaID = id
	m.SagaVersion = &version
	return m
}

// String implements fmt.Stringer, mainly for log lines and test failures.
func (m Message) String() string {
	s := m.Type
	if !m.AggregateID.IsZero() {
		s += "@" + m.AggregateID.String()
	}
	if m.AggregateVersion != nil {
		s += "#" + uitoa(*m.AggregateVersion)
	}
	return s
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
