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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidateRequiresType(t *testing.T) {
	err := DefaultValidate(Event{AggregateID: NewID("cust-1")})
	require.Equal(t, FieldError{Field: "Type"}, err)
}

func TestDefaultValidateRequiresAggregateOrSaga(t *testing.T) {
	err := DefaultValidate(Event{Type: "CustomerMoved"})
	require.Equal(t, FieldError{Field: "AggregateID or SagaID"}, err)
}

func TestDefaultValidateRequiresSagaVersionWithSagaID(t *testing.T) {
	err := DefaultValidate(Event{Type: "OrderPlaced", SagaID: NewID("saga-1")})
	require.Equal(t, FieldError{Field: "SagaVersion"}, err)
}

func TestDefaultValidateAcceptsAggregateScoped(t *testing.T) {
	err := DefaultValidate(Event{Type: "CustomerMoved", AggregateID: NewID("cust-1")})
	require.NoError(t, err)
}

func TestDefaultValidateAcceptsSagaScoped(t *testing.T) {
	version := uint64(1)
	err := DefaultValidate(Event{Type: "OrderPlaced", SagaID: NewID("saga-1"), SagaVersion: &version})
	require.NoError(t, err)
}
