// Copyright (c) 2014 - The Event Horizon authors.
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

// Package streamkit is an event-sourcing / CQRS runtime: command routing to
// aggregates, deterministic state reconstruction from a durable event stream
// (with optional snapshots), atomic commit-then-publish, saga identifier
// assignment on stream starters, and one-time filtered subscriptions.
//
// Storage backends, message transports and the concrete domain aggregates
// are external collaborators; only their contracts (EventStorage,
// SnapshotStorage, MessageBus, Aggregate, Saga) are specified here.
package streamkit

// SnapshotEventType is the reserved Message.Type for snapshot events. A
// snapshot event carries the aggregateVersion it was taken at and a
// restorable state image as its Payload.
const SnapshotEventType = "snapshot"
