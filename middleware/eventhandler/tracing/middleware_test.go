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

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

func TestMiddlewareRecordsSpanOnSuccess(t *testing.T) {
	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	version := uint64(2)
	h := NewMiddleware("projection")(func(context.Context, streamkit.Event) error {
		return nil
	})

	err := h(context.Background(), streamkit.Event{
		Type:             "OrderPlaced",
		AggregateID:      streamkit.NewID("order-1"),
		AggregateVersion: &version,
	})
	require.NoError(t, err)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "projection.Event(OrderPlaced)", spans[0].OperationName)
	require.Equal(t, "order-1", spans[0].Tag("streamkit.aggregate_id"))
	require.Equal(t, uint64(2), spans[0].Tag("streamkit.aggregate_version"))
}

func TestMiddlewareRecordsErrorOnFailure(t *testing.T) {
	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	handlerErr := errors.New("boom")
	h := NewMiddleware("projection")(func(context.Context, streamkit.Event) error {
		return handlerErr
	})

	err := h(context.Background(), streamkit.Event{Type: "OrderPlaced"})
	require.ErrorIs(t, err, handlerErr)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	require.Equal(t, true, spans[0].Tag("error"))
}
