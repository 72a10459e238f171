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
	"context"
	"sync"
)

// localCommandBus is a single-process, map-based CommandBus: at most one
// handler per command type.
type localCommandBus struct {
	mu       sync.RWMutex
	handlers map[string]CommandHandlerFunc
}

// NewCommandBus builds a CommandBus that routes by command type to a
// single registered handler.
func NewCommandBus() CommandBus {
	return &localCommandBus{
		handlers: make(map[string]CommandHandlerFunc),
	}
}

func (b *localCommandBus) SetHandler(commandType string, handler CommandHandlerFunc) error {
	if commandType == "" || handler == nil {
		return ErrInvalidArgument
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[commandType]; exists {
		return ErrHandlerAlreadySet
	}
	b.handlers[commandType] = handler
	return nil
}

func (b *localCommandBus) Send(ctx context.Context, commandType string, aggregateID ID, payload, cmdCtx any) (EventStream, error) {
	return b.SendRaw(ctx, Command{
		Type:        commandType,
		AggregateID: aggregateID,
		Payload:     payload,
		Context:     cmdCtx,
	})
}

func (b *localCommandBus) SendRaw(ctx context.Context, cmd Command) (EventStream, error) {
	b.mu.RLock()
	handler, ok := b.handlers[cmd.Type]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrHandlerNotFound
	}
	return handler(ctx, cmd)
}
