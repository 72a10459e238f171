// Copyright (c) 2020 - The Event Horizon authors.
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

// Package scheduler decorates a streamkit.EventHandlerFunc with a
// Scheduler that can inject synthetic events into it on a cron
// schedule, alongside whatever events the handler normally receives
// off a bus.
package scheduler

import (
	"context"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator and the Scheduler used to inject
// events into it. The scheduler runs until ctx is canceled.
func NewMiddleware(ctx context.Context) (func(streamkit.EventHandlerFunc) streamkit.EventHandlerFunc, *Scheduler) {
	s := &Scheduler{ctx: ctx}
	return func(h streamkit.EventHandlerFunc) streamkit.EventHandlerFunc {
		ch := s.newChannel()
		go run(ctx, h, ch)
		return h
	}, s
}

// Scheduler periodically injects synthetic events into every handler
// it decorates, using the cron syntax from
// https://github.com/gorhill/cronexpr.
type Scheduler struct {
	ctx      context.Context
	eventChs []chan data
}

func (s *Scheduler) newChannel() chan data {
	ch := make(chan data)
	s.eventChs = append(s.eventChs, ch)
	return ch
}

// ScheduleEvent injects an event, built by eventFunc from the
// triggering time, into every decorated handler on cronLine's
// schedule. Canceling ctx stops this particular schedule; canceling
// the context NewMiddleware was built with stops all of them.
func (s *Scheduler) ScheduleEvent(ctx context.Context, cronLine string, eventFunc func(time.Time) streamkit.Event) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	expr, err := cronexpr.Parse(cronLine)
	if err != nil {
		return err
	}

	go func() {
		for {
			nextTime := expr.Next(time.Now())
			select {
			case <-time.After(nextTime.Sub(time.Now())):
				for _, eventCh := range s.eventChs {
					eventCh <- data{ctx, eventFunc(nextTime)}
				}
			case <-ctx.Done():
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()

	return nil
}

type data struct {
	ctx   context.Context
	event streamkit.Event
}

func run(ctx context.Context, h streamkit.EventHandlerFunc, eventsCh chan data) error {
	for {
		select {
		case d := <-eventsCh:
			if err := h(d.ctx, d.event); err != nil {
				return err
			}
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		}
	}
}
