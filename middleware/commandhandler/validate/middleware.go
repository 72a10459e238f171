// Copyright (c) 2018 - The Event Horizon authors.
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

// Package validate decorates a streamkit.CommandHandlerFunc to run a
// command's own validation, if it has one, before dispatch.
package validate

import (
	"context"
	"fmt"

	"github.com/streamkit/streamkit"
)

// Validatable is implemented by a command payload with its own
// validation logic.
type Validatable interface {
	Validate() error
}

// NewMiddleware returns a decorator that rejects a command whose
// Payload implements Validatable and returns a validation error.
// Commands whose Payload does not implement it pass through
// unvalidated.
func NewMiddleware() func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			if v, ok := cmd.Payload.(Validatable); ok {
				if err := v.Validate(); err != nil {
					return nil, Error{err}
				}
			}
			return h(ctx, cmd)
		}
	}
}

// Error wraps a command's validation failure.
type Error struct {
	err error
}

func (e Error) Error() string {
	return fmt.Sprintf("invalid command: %s", e.err.Error())
}

func (e Error) Unwrap() error {
	return e.err
}
