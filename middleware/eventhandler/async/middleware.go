// Copyright (c) 2017 - The Event Horizon authors.
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

// Package async decorates a streamkit.EventHandlerFunc to run in its
// own goroutine, returning to the publisher immediately and reporting
// any failure on an error channel instead.
package async

import (
	"context"
	"fmt"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator that hands each event off to the
// wrapped handler on its own goroutine and reports failures on the
// returned channel.
func NewMiddleware() (func(streamkit.EventHandlerFunc) streamkit.EventHandlerFunc, chan *Error) {
	errCh := make(chan *Error, 20)

	return func(h streamkit.EventHandlerFunc) streamkit.EventHandlerFunc {
		return func(ctx context.Context, event streamkit.Event) error {
			go func() {
				if err := h(ctx, event); err != nil {
					errCh <- &Error{err, ctx, event}
				}
			}()
			return nil
		}
	}, errCh
}

// Error is an async error containing the error and the event.
type Error struct {
	Err   error
	Ctx   context.Context
	Event streamkit.Event
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Event.String(), e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}
