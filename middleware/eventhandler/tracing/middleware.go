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

// Package tracing decorates a streamkit.EventHandlerFunc with an
// OpenTracing span per delivered event.
package tracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator that wraps every delivered event in
// its own span, named after handlerName and the event's type.
func NewMiddleware(handlerName string) func(streamkit.EventHandlerFunc) streamkit.EventHandlerFunc {
	return func(h streamkit.EventHandlerFunc) streamkit.EventHandlerFunc {
		return func(ctx context.Context, event streamkit.Event) error {
			opName := fmt.Sprintf("%s.Event(%s)", handlerName, event.Type)
			sp, ctx := opentracing.StartSpanFromContext(ctx, opName)
			defer sp.Finish()

			err := h(ctx, event)
			if err != nil {
				ext.LogError(sp, err)
			}

			sp.SetTag("streamkit.event_type", event.Type)
			sp.SetTag("streamkit.aggregate_id", event.AggregateID.String())
			if event.AggregateVersion != nil {
				sp.SetTag("streamkit.aggregate_version", *event.AggregateVersion)
			}

			return err
		}
	}
}
