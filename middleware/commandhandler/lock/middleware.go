// Copyright (c) 2021 - The Event Horizon authors.
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

// Package lock decorates a streamkit.CommandHandlerFunc with a lock held
// for the duration of the command, so only one command per aggregate ID
// is handled at a time.
package lock

import (
	"context"
	"log"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator that locks cmd.AggregateID for the
// duration of the wrapped handler using l, returning ErrLockExists
// instead of handling a command whose aggregate is already locked.
func NewMiddleware(l Lock) func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			id := cmd.AggregateID.String()
			if err := l.Lock(id); err != nil {
				return nil, err
			}
			defer func() {
				if err := l.Unlock(id); err != nil {
					log.Printf("streamkit: could not unlock command '%s': %s", id, err)
				}
			}()

			return h(ctx, cmd)
		}
	}
}
