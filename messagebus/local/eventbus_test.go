// Copyright (c) 2018 - The Event Horizon authors.
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

package local

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

type busPayload struct {
	Content string
}

func TestBusPublishDeliversToMatchingHandler(t *testing.T) {
	b := NewBus()
	var received []streamkit.Event
	var mu sync.Mutex

	_, err := b.On("CustomerMoved", func(_ context.Context, e streamkit.Event) error {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	_, err = b.On("CustomerCreated", func(context.Context, streamkit.Event) error {
		t.Fatal("handler for unrelated type must not be called")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), streamkit.Event{Type: "CustomerMoved", Payload: busPayload{Content: "x"}}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
}

func TestBusOnRejectsInvalidArguments(t *testing.T) {
	b := NewBus()
	_, err := b.On("", func(context.Context, streamkit.Event) error { return nil })
	require.ErrorIs(t, err, streamkit.ErrInvalidArgument)
	_, err = b.On("CustomerMoved", nil)
	require.ErrorIs(t, err, streamkit.ErrInvalidArgument)
}

func TestBusOffRemovesSubscription(t *testing.T) {
	b := NewBus()
	called := false
	sub, err := b.On("CustomerMoved", func(context.Context, streamkit.Event) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, b.Off(sub))
	require.NoError(t, b.Publish(context.Background(), streamkit.Event{Type: "CustomerMoved"}))
	require.False(t, called)
}

func TestBusPublishIsolatesPayloadPerHandler(t *testing.T) {
	b := NewBus()
	var got1, got2 busPayload

	_, err := b.On("CustomerMoved", func(_ context.Context, e streamkit.Event) error {
		got1 = e.Payload.(busPayload)
		got1.Content = "mutated"
		return nil
	})
	require.NoError(t, err)
	_, err = b.On("CustomerMoved", func(_ context.Context, e streamkit.Event) error {
		got2 = e.Payload.(busPayload)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), streamkit.Event{Type: "CustomerMoved", Payload: busPayload{Content: "original"}}))
	require.Equal(t, "mutated", got1.Content)
	require.Equal(t, "original", got2.Content)
}

func TestBusWildcardSubscriptionReceivesEveryType(t *testing.T) {
	b := NewBus()
	var received []string
	var mu sync.Mutex
	_, err := b.On(wildcardEventType, func(_ context.Context, e streamkit.Event) error {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), streamkit.Event{Type: "CustomerMoved"}))
	require.NoError(t, b.Publish(context.Background(), streamkit.Event{Type: "CustomerCreated"}))

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"CustomerMoved", "CustomerCreated"}, received)
}

func TestBusQueueRoundRobins(t *testing.T) {
	b := NewBus()
	q, err := b.Queue("workers")
	require.NoError(t, err)
	require.Equal(t, "workers", q.Name())

	var mu sync.Mutex
	var hits [2]int
	for i := range hits {
		i := i
		_, err := q.On("OrderPlaced", func(context.Context, streamkit.Event) error {
			mu.Lock()
			hits[i]++
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Publish(context.Background(), streamkit.Event{Type: "OrderPlaced"}))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, hits[0])
	require.Equal(t, 2, hits[1])
}

func TestBusQueueReturnsSameInstanceByName(t *testing.T) {
	b := NewBus()
	q1, err := b.Queue("workers")
	require.NoError(t, err)
	q2, err := b.Queue("workers")
	require.NoError(t, err)
	require.Same(t, q1, q2)
}
