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

// Validator checks an event for structural validity before it is
// persisted. A caller-supplied Validator overrides DefaultValidate.
type Validator func(Event) error

// DefaultValidate implements the default event validation of spec §4.1.3:
// Type must be non-empty, at least one of AggregateID or SagaID must be
// set, and SagaVersion must be set whenever SagaID is set.
func DefaultValidate(e Event) error {
	if e.Type == "" {
		return FieldError{Field: "Type"}
	}
	if e.AggregateID.IsZero() && e.SagaID.IsZero() {
		return FieldError{Field: "AggregateID or SagaID"}
	}
	if !e.SagaID.IsZero() && e.SagaVersion == nil {
		return FieldError{Field: "SagaVersion"}
	}
	return nil
}
