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
	"fmt"

	"github.com/streamkit/streamkit/uuid"
)

// ID is an opaque identifier. It preserves whatever comparable value it was
// constructed from verbatim (a string, an integer, a uuid.UUID, ...) so that
// storage backends using either string or integer primary keys can both
// satisfy the same contract.
type ID struct {
	v any
}

// NewID wraps v as an ID. v must be comparable (usable as a map key) since
// IDs are used to key aggregate and saga records.
func NewID(v any) ID {
	return ID{v: v}
}

// Value returns the wrapped value.
func (id ID) Value() any {
	return id.v
}

// IsZero reports whether the ID was never set.
func (id ID) IsZero() bool {
	return id.v == nil
}

// String implements fmt.Stringer.
func (id ID) String() string {
	if id.v == nil {
		return ""
	}
	return fmt.Sprint(id.v)
}

// Equal reports whether id and other wrap the same value.
func (id ID) Equal(other ID) bool {
	return id.v == other.v
}

// NewUUID creates a new random ID backed by a UUID, the default identifier
// kind used by the in-memory and MongoDB EventStorage drivers.
func NewUUID() ID {
	return NewID(uuid.New())
}
