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

// Package tracing decorates a streamkit.CommandHandlerFunc with an
// OpenTracing span per command, via github.com/opentracing/opentracing-go.
package tracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator that wraps every handled command in
// its own span, tagged with the command and aggregate it addressed.
func NewMiddleware() func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			opName := fmt.Sprintf("Command(%s)", cmd.Type)
			sp, ctx := opentracing.StartSpanFromContext(ctx, opName)
			defer sp.Finish()

			events, err := h(ctx, cmd)

			sp.SetTag("streamkit.command_type", cmd.Type)
			sp.SetTag("streamkit.aggregate_id", cmd.AggregateID.String())
			if err != nil {
				ext.LogError(sp, err)
			}

			return events, err
		}
	}
}
