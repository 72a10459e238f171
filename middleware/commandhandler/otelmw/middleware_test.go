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

package otelmw

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

func TestMiddlewarePassesThroughEventsOnSuccess(t *testing.T) {
	h := NewMiddleware()(func(context.Context, streamkit.Command) (streamkit.EventStream, error) {
		return streamkit.EventStream{{Type: "OrderPlaced"}}, nil
	})

	events, err := h(context.Background(), streamkit.Command{Type: "PlaceOrder", AggregateID: streamkit.NewID("order-1")})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestMiddlewarePropagatesHandlerError(t *testing.T) {
	handlerErr := errors.New("boom")
	h := NewMiddleware()(func(context.Context, streamkit.Command) (streamkit.EventStream, error) {
		return nil, handlerErr
	})

	_, err := h(context.Background(), streamkit.Command{Type: "PlaceOrder", AggregateID: streamkit.NewID("order-1")})
	require.ErrorIs(t, err, handlerErr)
}

func TestMiddlewarePassesContextToHandler(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")

	var seen any
	h := NewMiddleware()(func(ctx context.Context, _ streamkit.Command) (streamkit.EventStream, error) {
		seen = ctx.Value(key{})
		return nil, nil
	})

	_, err := h(ctx, streamkit.Command{Type: "PlaceOrder"})
	require.NoError(t, err)
	require.Equal(t, "value", seen)
}
