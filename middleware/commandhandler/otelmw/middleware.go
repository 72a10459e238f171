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

// Package otelmw decorates a streamkit.CommandHandlerFunc with an
// OpenTelemetry span per command, for deployments that standardized on
// go.opentelemetry.io/otel rather than OpenTracing.
package otelmw

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/streamkit/streamkit"
)

const instrumentationName = "github.com/streamkit/streamkit"

var (
	attrCommandType = attribute.Key("streamkit.command.type")
	attrAggregateID = attribute.Key("streamkit.aggregate.id")

	tracer = otel.Tracer(instrumentationName)
)

// NewMiddleware returns a decorator that wraps every handled command in
// its own span.
func NewMiddleware() func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			ctx, span := tracer.Start(ctx, fmt.Sprintf("command.handle %s", cmd.Type),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attrCommandType.String(cmd.Type),
					attrAggregateID.String(cmd.AggregateID.String()),
				),
			)
			defer span.End()

			events, err := h(ctx, cmd)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
				return events, err
			}

			span.SetStatus(codes.Ok, "")
			return events, err
		}
	}
}
