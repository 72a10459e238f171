// Copyright (c) 2014 - Max Ekman <max@looplab.se>
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

package gcppubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	event := streamkit.Event{
		Type:        "CustomerCreated",
		AggregateID: streamkit.NewID("cust-1"),
		Payload:     "alice",
	}

	data, err := marshal(event)
	require.NoError(t, err)

	got, err := unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "CustomerCreated", got.Type)
	require.Equal(t, "cust-1", got.AggregateID.Value())
	require.Equal(t, "alice", got.Payload)
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	_, err := unmarshal([]byte("garbage"))
	require.Error(t, err)
}

func TestBusTopicNameNamespacesByAppID(t *testing.T) {
	b := &Bus{appID: "orders"}
	require.Equal(t, "orders-OrderPlaced", b.topicName("OrderPlaced"))
}
