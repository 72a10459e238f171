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

import "errors"

// Sentinel errors raised synchronously for validation and contract
// violations (spec §7).
var (
	// ErrInvalidArgument is returned for missing/empty required fields or
	// malformed filters, detected at call entry.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidEvent is returned when an event fails structural
	// validation during Commit. The whole commit fails; nothing persists.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrSnapshotsUnsupported is returned when a commit batch includes a
	// snapshot event but no SnapshotStorage was configured.
	ErrSnapshotsUnsupported = errors.New("snapshots are not supported: no snapshot storage configured")

	// ErrMultipleSnapshots is returned when a commit batch includes more
	// than one snapshot event.
	ErrMultipleSnapshots = errors.New("commit batch contains more than one snapshot event")

	// ErrSnapshotContractViolation is returned when an aggregate signals
	// ShouldTakeSnapshot but does not implement SnapshotMaker.
	ErrSnapshotContractViolation = errors.New("aggregate requested a snapshot but does not implement MakeSnapshot")

	// ErrSagaAlreadyStarted is returned when a saga-starter event arrives
	// with a pre-populated SagaID.
	ErrSagaAlreadyStarted = errors.New("saga starter event already has a saga id")

	// ErrUnsupportedCapability is returned when a caller invokes an
	// optional bus capability (e.g. Queue) that the configured bus does
	// not implement.
	ErrUnsupportedCapability = errors.New("bus does not support this capability")

	// ErrAggregateNotFound is returned by AggregateCommandHandler when its
	// AggregateFactory's New returns a nil aggregate.
	ErrAggregateNotFound = errors.New("no aggregate for command")

	// ErrHandlerNotFound is returned by a CommandBus when no handler is
	// registered for a command type.
	ErrHandlerNotFound = errors.New("no handler for command type")

	// ErrHandlerAlreadySet is returned when a second handler is
	// registered for a command type that already has one.
	ErrHandlerAlreadySet = errors.New("handler already set for command type")

	// ErrMissingAggregateID is returned by SaveAggregateSnapshot and by
	// Commit when the snapshot event has no AggregateID.
	ErrMissingAggregateID = errors.New("snapshot event has no aggregate id")

	// ErrNoEventsToCommit is returned by Commit when called with an empty
	// batch; not an error condition callers need to branch on, but makes
	// accidental empty commits visible in logs.
	ErrNoEventsToCommit = errors.New("no events to commit")
)

// StorageError wraps an error returned by an EventStorage or
// SnapshotStorage implementation, annotating which operation failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CommitPartialFailureError is returned by Commit when events and the
// snapshot (if any) were persisted concurrently and only one of the two
// storage operations succeeded. The commit as a whole is not published.
type CommitPartialFailureError struct {
	// EventsErr is the error from persisting the non-snapshot events, if
	// any.
	EventsErr error
	// SnapshotErr is the error from persisting the snapshot, if any.
	SnapshotErr error
}

func (e *CommitPartialFailureError) Error() string {
	switch {
	case e.EventsErr != nil && e.SnapshotErr != nil:
		return "commit partial failure: events: " + e.EventsErr.Error() + "; snapshot: " + e.SnapshotErr.Error()
	case e.EventsErr != nil:
		return "commit partial failure: events: " + e.EventsErr.Error()
	case e.SnapshotErr != nil:
		return "commit partial failure: snapshot: " + e.SnapshotErr.Error()
	default:
		return "commit partial failure"
	}
}

func (e *CommitPartialFailureError) Unwrap() []error {
	var errs []error
	if e.EventsErr != nil {
		errs = append(errs, e.EventsErr)
	}
	if e.SnapshotErr != nil {
		errs = append(errs, e.SnapshotErr)
	}
	return errs
}

// PublishError wraps an error from MessageBus.Publish. It is only ever
// returned to a Commit caller when the EventStore is configured for
// synchronous publishing; in async mode it is only ever passed to a Logger.
type PublishError struct {
	Event Event
	Err   error
}

func (e *PublishError) Error() string {
	return "publish " + e.Event.String() + ": " + e.Err.Error()
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// FieldError is returned by the default event/command validator when a
// required field is missing.
type FieldError struct {
	Field string
}

func (e FieldError) Error() string {
	return "missing field: " + e.Field
}
