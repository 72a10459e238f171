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

// Package ws exposes a streamkit.MessageBus subscription as a
// WebSocket feed, forwarding every matching event to every connected
// client as JSON.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/streamkit/streamkit"
)

var upgrader = websocket.Upgrader{}

// wireEvent is the JSON shape written to each connected client.
type wireEvent struct {
	Type             string  `json:"type"`
	AggregateID      any     `json:"aggregateId,omitempty"`
	AggregateVersion *uint64 `json:"aggregateVersion,omitempty"`
	Payload          any     `json:"payload,omitempty"`
}

// Handler upgrades every request to a WebSocket connection and streams
// every event of one of types (or every event, if types is empty)
// published on bus to that connection until it closes.
func Handler(bus streamkit.MessageBus, types ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("ws: upgrade:", err)
			return
		}
		defer conn.Close()

		ch := make(chan streamkit.Event, 10)
		forward := func(_ context.Context, event streamkit.Event) error {
			select {
			case ch <- event:
			default:
				log.Println("ws: dropped event, slow client:", event)
			}
			return nil
		}

		var subs []streamkit.Subscription
		if len(types) == 0 {
			sub, err := bus.On("*", forward)
			if err != nil {
				log.Println("ws: subscribe:", err)
				return
			}
			subs = append(subs, sub)
		} else {
			for _, t := range types {
				sub, err := bus.On(t, forward)
				if err != nil {
					log.Println("ws: subscribe:", err)
					continue
				}
				subs = append(subs, sub)
			}
		}
		defer func() {
			for _, sub := range subs {
				_ = bus.Off(sub)
			}
		}()

		for event := range ch {
			out := wireEvent{
				Type:             event.Type,
				AggregateVersion: event.AggregateVersion,
				Payload:          event.Payload,
			}
			if !event.AggregateID.IsZero() {
				out.AggregateID = event.AggregateID.Value()
			}
			data, err := json.Marshal(out)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Println("ws: write:", err)
				return
			}
		}
	})
}
