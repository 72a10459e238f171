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

// Package scheduler redelivers saga compensating commands that failed
// their first dispatch, on a cron schedule parsed by
// github.com/gorhill/cronexpr.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/streamkit/streamkit"
)

// Sender dispatches a command, matching streamkit.CommandBus.SendRaw.
type Sender interface {
	SendRaw(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error)
}

// Scheduler retries every streamkit.Command handed to Enqueue on cronLine's
// schedule until it dispatches without error, or until the command is
// individually cancelled via the returned cancel func.
type Scheduler struct {
	sender Sender
	expr   *cronexpr.Expression
	logger streamkit.Logger

	mu      sync.Mutex
	pending map[*pendingCommand]struct{}
	errCh   chan error
}

type pendingCommand struct {
	cmd streamkit.Command
}

// New creates a Scheduler that redelivers through sender on cronLine's
// schedule (cron syntax per https://github.com/gorhill/cronexpr).
func New(ctx context.Context, sender Sender, cronLine string, logger streamkit.Logger) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cronLine)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		sender:  sender,
		expr:    expr,
		logger:  logger,
		pending: make(map[*pendingCommand]struct{}),
		errCh:   make(chan error, 20),
	}
	go s.run(ctx)
	return s, nil
}

// Enqueue registers cmd for redelivery on every future tick until it
// succeeds. The returned cancel func removes it without waiting for a
// successful dispatch.
func (s *Scheduler) Enqueue(cmd streamkit.Command) (cancel func()) {
	p := &pendingCommand{cmd: cmd}
	s.mu.Lock()
	s.pending[p] = struct{}{}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.pending, p)
		s.mu.Unlock()
	}
}

// Errors returns the channel redelivery failures are reported on.
func (s *Scheduler) Errors() <-chan error {
	return s.errCh
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		next := s.expr.Next(time.Now())
		select {
		case <-time.After(next.Sub(time.Now())):
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	due := make([]*pendingCommand, 0, len(s.pending))
	for p := range s.pending {
		due = append(due, p)
	}
	s.mu.Unlock()

	for _, p := range due {
		if _, err := s.sender.SendRaw(ctx, p.cmd); err != nil {
			if s.logger != nil {
				s.logger.Error(ctx, "scheduler: redelivery failed", "command", p.cmd.Type, "err", err)
			}
			select {
			case s.errCh <- err:
			default:
			}
			continue
		}
		s.mu.Lock()
		delete(s.pending, p)
		s.mu.Unlock()
	}
}
