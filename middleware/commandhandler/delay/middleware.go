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

// Package delay decorates a streamkit.CommandHandlerFunc to postpone a
// command's dispatch until a caller-chosen execution time instead of
// running it immediately.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator that, for any command wrapped with
// At, waits until its execution time before invoking the wrapped
// handler in a new goroutine and reports the outcome is returned
// immediately without waiting, on the returned channel. Commands not
// wrapped with At run synchronously as usual.
func NewMiddleware() (func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc, chan *Error) {
	errCh := make(chan *Error, 20)
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			executeAt, ok := executionTime(cmd)
			if !ok || executeAt.IsZero() {
				return h(ctx, cmd)
			}

			go func() {
				t := time.NewTimer(time.Until(executeAt))
				defer t.Stop()

				var err error
				select {
				case <-ctx.Done():
					err = ctx.Err()
				case <-t.C:
					_, err = h(ctx, cmd)
				}

				if err != nil {
					errCh <- &Error{Err: err, Command: cmd}
				}
			}()
			return nil, nil
		}
	}, errCh
}

type contextKey struct{}

// At returns cmd's Context tagged with t, the time at which the
// decorated handler should dispatch it.
func At(cmd streamkit.Command, t time.Time) streamkit.Command {
	cmd.Context = context.WithValue(asContext(cmd.Context), contextKey{}, t)
	return cmd
}

func asContext(v any) context.Context {
	if ctx, ok := v.(context.Context); ok {
		return ctx
	}
	return context.Background()
}

func executionTime(cmd streamkit.Command) (time.Time, bool) {
	ctx, ok := cmd.Context.(context.Context)
	if !ok {
		return time.Time{}, false
	}
	t, ok := ctx.Value(contextKey{}).(time.Time)
	return t, ok
}

// Error reports a delayed command's dispatch failure, surfaced on the
// channel NewMiddleware returns since the original caller has long
// since stopped waiting on it.
type Error struct {
	Err     error
	Command streamkit.Command
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Command.Type, e.Command.AggregateID, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}
