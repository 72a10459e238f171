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

package kafka

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	version := uint64(2)
	event := streamkit.Event{
		Type:             "OrderPlaced",
		AggregateID:      streamkit.NewID("order-1"),
		AggregateVersion: &version,
		Payload:          "payload",
	}

	data, err := marshal(event)
	require.NoError(t, err)

	got, err := unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "OrderPlaced", got.Type)
	require.Equal(t, "order-1", got.AggregateID.Value())
	require.Equal(t, uint64(2), *got.AggregateVersion)
	require.Equal(t, "payload", got.Payload)
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	_, err := unmarshal([]byte("{not json"))
	require.Error(t, err)
}

func TestBusTopicNamespacesByAppID(t *testing.T) {
	b := NewBus("localhost:9092", "orders")
	require.Equal(t, "orders.OrderPlaced", b.topic("OrderPlaced"))
}

func TestBusWriterIsCachedPerTopic(t *testing.T) {
	b := NewBus("localhost:9092", "orders")
	w1 := b.writer("OrderPlaced")
	w2 := b.writer("OrderPlaced")
	require.Same(t, w1, w2)

	w3 := b.writer("OrderShipped")
	require.NotSame(t, w1, w3)
}
