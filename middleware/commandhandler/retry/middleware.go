// Copyright (c) 2024 - The Event Horizon authors.
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

// Package retry decorates a streamkit.CommandHandlerFunc with
// exponential-backoff retry for transient failures, via
// github.com/jpillora/backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"

	"github.com/streamkit/streamkit"
)

// Retryable is implemented by errors that indicate a transient failure
// worth retrying (a storage timeout, a lost optimistic-concurrency race),
// as opposed to a permanent one (a validation failure).
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err should be retried: it implements
// Retryable and returns true. Any other error, including a plain
// *streamkit.StorageError, is treated as permanent.
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// NewMiddleware returns a decorator that retries the wrapped handler
// with exponentially longer delays (b) while ctx has not expired and the
// error IsRetryable. If ctx has no deadline, the handler runs once.
func NewMiddleware(b backoff.Backoff) func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			delay := b
			_, hasDeadline := ctx.Deadline()

			for {
				events, err := h(ctx, cmd)
				if err == nil || !IsRetryable(err) || !hasDeadline {
					return events, err
				}

				select {
				case <-time.After(delay.Duration()):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
	}
}
