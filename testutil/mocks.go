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

package testutil

import (
	"context"
	"time"

	"github.com/streamkit/streamkit"
)

// Mock command/event type names shared across the root package's tests
// and driver acceptance tests.
const (
	MockCommandType = "MockCommand"
	MockEventType   = "MockEvent"
)

// MockPayload is the opaque payload carried by mock commands and events.
type MockPayload struct {
	Content string
}

// MockAggregate is a minimal streamkit.Aggregate: handling MockCommandType
// emits one MockEventType event carrying the command's payload.
type MockAggregate struct {
	*streamkit.AggregateBase
	state string
}

// NewMockAggregate builds a MockAggregate hydrated from events (and,
// first, snapshot if non-nil), matching the shape of
// streamkit.AggregateFactory.New.
func NewMockAggregate(id streamkit.ID, events []streamkit.Event, snapshot *streamkit.Event) (streamkit.Aggregate, error) {
	a := &MockAggregate{AggregateBase: streamkit.NewAggregateBase(id)}
	if snapshot != nil {
		if err := a.RestoreSnapshot(*snapshot); err != nil {
			return nil, err
		}
	}
	for _, e := range events {
		if e.IsSnapshot() {
			continue
		}
		a.fold(e)
		a.Mutate(e)
	}
	return a, nil
}

func (a *MockAggregate) State() any { return a.state }

func (a *MockAggregate) Handle(_ context.Context, cmd streamkit.Command) error {
	if cmd.Type != MockCommandType {
		return nil
	}
	payload, _ := cmd.Payload.(MockPayload)
	event := a.Emit(MockEventType, payload)
	a.fold(event)
	return nil
}

func (a *MockAggregate) fold(e streamkit.Event) {
	if payload, ok := e.Payload.(MockPayload); ok {
		a.state = payload.Content
	}
}

func (a *MockAggregate) MakeSnapshot() (streamkit.Event, error) {
	return streamkit.Event{
		Type:             streamkit.SnapshotEventType,
		AggregateID:      a.ID(),
		AggregateVersion: ptr(a.Version()),
		Payload:          a.state,
	}, nil
}

func (a *MockAggregate) RestoreSnapshot(snapshot streamkit.Event) error {
	state, _ := snapshot.Payload.(string)
	a.state = state
	if snapshot.AggregateVersion != nil {
		a.RestoreVersion(*snapshot.AggregateVersion)
	}
	return nil
}

// MockFactory is a streamkit.AggregateFactory wired to MockAggregate.
var MockFactory = streamkit.AggregateFactory{
	New:     NewMockAggregate,
	Handles: []string{MockCommandType},
}

// MockSaga is a minimal streamkit.Saga for SagaEventHandler tests: every
// applied event of MockEventType produces one MockCommandType command.
type MockSaga struct {
	*streamkit.SagaBase
}

// NewMockSaga builds a MockSaga, matching streamkit.SagaFactory.New.
func NewMockSaga(id streamkit.ID) streamkit.Saga {
	return &MockSaga{SagaBase: streamkit.NewSagaBase(id)}
}

func (s *MockSaga) Handles() []string { return []string{MockEventType} }

func (s *MockSaga) Apply(_ context.Context, event streamkit.Event) error {
	s.MarkApplied(event)
	s.Dispatch(streamkit.Command{Type: MockCommandType, AggregateID: event.AggregateID})
	return nil
}

// MockSagaFactory is a streamkit.SagaFactory wired to MockSaga.
var MockSagaFactory = streamkit.SagaFactory{
	New:     NewMockSaga,
	Handles: []string{MockEventType},
}

// RecordingLogger is a streamkit.Logger that records every Error call,
// for assertions in tests that exercise async failure paths.
type RecordingLogger struct {
	Entries []RecordingLoggerEntry
}

// RecordingLoggerEntry is one recorded call to RecordingLogger.Error.
type RecordingLoggerEntry struct {
	Msg     string
	Keyvals []any
	At      time.Time
}

func (l *RecordingLogger) Error(_ context.Context, msg string, keyvals ...any) {
	l.Entries = append(l.Entries, RecordingLoggerEntry{Msg: msg, Keyvals: keyvals, At: time.Now()})
}
