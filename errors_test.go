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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &StorageError{Op: "CommitEvents", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "CommitEvents")
	require.Contains(t, err.Error(), "connection refused")
}

func TestCommitPartialFailureErrorMessages(t *testing.T) {
	eventsErr := errors.New("disk full")
	snapshotErr := errors.New("timeout")

	require.Equal(t, "commit partial failure: events: disk full; snapshot: timeout",
		(&CommitPartialFailureError{EventsErr: eventsErr, SnapshotErr: snapshotErr}).Error())
	require.Equal(t, "commit partial failure: events: disk full",
		(&CommitPartialFailureError{EventsErr: eventsErr}).Error())
	require.Equal(t, "commit partial failure: snapshot: timeout",
		(&CommitPartialFailureError{SnapshotErr: snapshotErr}).Error())
	require.Equal(t, "commit partial failure", (&CommitPartialFailureError{}).Error())
}

func TestCommitPartialFailureErrorUnwrap(t *testing.T) {
	eventsErr := errors.New("disk full")
	snapshotErr := errors.New("timeout")
	err := &CommitPartialFailureError{EventsErr: eventsErr, SnapshotErr: snapshotErr}
	require.ErrorIs(t, err, eventsErr)
	require.ErrorIs(t, err, snapshotErr)
}

func TestPublishErrorUnwraps(t *testing.T) {
	cause := errors.New("no subscribers")
	event := Event{Type: "CustomerMoved", AggregateID: NewID("cust-1")}
	err := &PublishError{Event: event, Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "CustomerMoved@cust-1")
}

func TestFieldErrorMessage(t *testing.T) {
	require.Equal(t, "missing field: Type", FieldError{Field: "Type"}.Error())
}
