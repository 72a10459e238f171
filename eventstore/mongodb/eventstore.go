// Copyright (c) 2015 - Max Ekman <max@looplab.se>
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

// Package mongodb implements streamkit.EventStorage on top of
// go.mongodb.org/mongo-driver/v2, the durable, multi-node-safe
// counterpart to eventstore/memory.
package mongodb

import (
	"context"
	"errors"
	"iter"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/streamkit/streamkit"
	"github.com/streamkit/streamkit/mongoutils"
	"github.com/streamkit/streamkit/uuid"
)

// ErrCouldNotDialDB is when the database could not be connected to.
var ErrCouldNotDialDB = errors.New("could not dial database")

// ErrNoClient is when no mongo.Client is set.
var ErrNoClient = errors.New("no mongo client")

// eventRecord is the BSON-on-the-wire shape of a stored streamkit.Event.
// Fields mirror streamkit.Message; AggregateID and SagaID are stored as
// their wrapped value since streamkit.ID itself carries no BSON tags.
type eventRecord struct {
	Type             string `bson:"type"`
	AggregateID      any    `bson:"aggregateId,omitempty"`
	AggregateVersion *uint64 `bson:"aggregateVersion,omitempty"`
	SagaID           any    `bson:"sagaId,omitempty"`
	SagaVersion      *uint64 `bson:"sagaVersion,omitempty"`
	Payload          bson.Raw `bson:"payload"`
	Timestamp        int64  `bson:"timestamp"`
}

func toRecord(e streamkit.Event) (eventRecord, error) {
	payload, err := bson.Marshal(bson.M{"v": e.Payload})
	if err != nil {
		return eventRecord{}, err
	}
	rec := eventRecord{
		Type:             e.Type,
		AggregateVersion: e.AggregateVersion,
		SagaVersion:      e.SagaVersion,
		Payload:          payload,
		Timestamp:        e.Timestamp.UnixNano(),
	}
	if !e.AggregateID.IsZero() {
		rec.AggregateID = e.AggregateID.Value()
	}
	if !e.SagaID.IsZero() {
		rec.SagaID = e.SagaID.Value()
	}
	return rec, nil
}

func fromRecord(rec eventRecord) (streamkit.Event, error) {
	var wrapped bson.M
	if err := bson.Unmarshal(rec.Payload, &wrapped); err != nil {
		return streamkit.Event{}, err
	}
	e := streamkit.Event{
		Type:             rec.Type,
		AggregateVersion: rec.AggregateVersion,
		SagaVersion:      rec.SagaVersion,
		Payload:          wrapped["v"],
	}
	if rec.AggregateID != nil {
		e.AggregateID = streamkit.NewID(rec.AggregateID)
	}
	if rec.SagaID != nil {
		e.SagaID = streamkit.NewID(rec.SagaID)
	}
	return e, nil
}

// EventStore is a MongoDB-backed streamkit.EventStorage. Every event is
// stored as one document in a single flat collection, indexed by
// aggregateId and sagaId for the scoped reads. It also implements
// streamkit.SnapshotStorage against a second, one-document-per-aggregate
// collection, so a caller can pass the same EventStore to both
// streamkit.WithSnapshotStorage and the EventStorage slot.
type EventStore struct {
	client      *mongo.Client
	collection  *mongo.Collection
	snapshotCol *mongo.Collection
}

// NewEventStore connects to uri and opens database/events, creating the
// indexes EventStore's reads rely on.
func NewEventStore(ctx context.Context, uri, database string) (*EventStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, ErrCouldNotDialDB
	}
	return NewEventStoreWithClient(ctx, client, database)
}

// NewEventStoreWithClient wraps an existing client, for callers that
// manage the mongo.Client lifecycle themselves (e.g. shared across
// several streamkit drivers).
func NewEventStoreWithClient(ctx context.Context, client *mongo.Client, database string) (*EventStore, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	if err := mongoutils.CheckCollectionName(database); err != nil {
		return nil, err
	}
	collection := client.Database(database).Collection("events")
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "aggregateId", Value: 1}, {Key: "aggregateVersion", Value: 1}}},
		{Keys: bson.D{{Key: "sagaId", Value: 1}, {Key: "sagaVersion", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	snapshotCol := client.Database(database).Collection("snapshots")
	if _, err := snapshotCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "aggregateId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}
	return &EventStore{client: client, collection: collection, snapshotCol: snapshotCol}, nil
}

// AggregateSnapshot returns id's latest snapshot, or nil if none has
// been saved.
func (s *EventStore) AggregateSnapshot(ctx context.Context, id streamkit.ID) (*streamkit.Event, error) {
	var rec eventRecord
	err := s.snapshotCol.FindOne(ctx, bson.M{"aggregateId": id.Value()}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e, err := fromRecord(rec)
	if err != nil {
		return nil, err
	}
	e.AggregateID = id
	return &e, nil
}

// SaveAggregateSnapshot upserts event as the latest snapshot for its
// aggregate, replacing any prior one.
func (s *EventStore) SaveAggregateSnapshot(ctx context.Context, event streamkit.Event) error {
	if event.AggregateID.IsZero() {
		return streamkit.ErrMissingAggregateID
	}
	rec, err := toRecord(event)
	if err != nil {
		return err
	}
	_, err = s.snapshotCol.ReplaceOne(ctx,
		bson.M{"aggregateId": event.AggregateID.Value()},
		rec,
		options.Replace().SetUpsert(true),
	)
	return err
}

// NewID allocates a fresh random UUID-backed ID.
func (s *EventStore) NewID(_ context.Context) (streamkit.ID, error) {
	return streamkit.NewID(uuid.New()), nil
}

// CommitEvents inserts events as individual documents.
func (s *EventStore) CommitEvents(ctx context.Context, events []streamkit.Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, len(events))
	for i, e := range events {
		rec, err := toRecord(e)
		if err != nil {
			return err
		}
		docs[i] = rec
	}
	_, err := s.collection.InsertMany(ctx, docs)
	return err
}

// AggregateEvents returns id's events in commit order, optionally
// resuming after afterVersion.
func (s *EventStore) AggregateEvents(ctx context.Context, id streamkit.ID, afterVersion *uint64) ([]streamkit.Event, error) {
	filter := bson.M{"aggregateId": id.Value()}
	if afterVersion != nil {
		filter["aggregateVersion"] = bson.M{"$gt": *afterVersion}
	}
	cur, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "aggregateVersion", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

// SagaEvents returns sagaID's events committed with SagaVersion strictly
// less than beforeVersion.
func (s *EventStore) SagaEvents(ctx context.Context, sagaID streamkit.ID, beforeVersion uint64) ([]streamkit.Event, error) {
	filter := bson.M{"sagaId": sagaID.Value(), "sagaVersion": bson.M{"$lt": beforeVersion}}
	cur, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sagaVersion", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

// AllEvents returns a lazily-decoded cursor over the whole log, optionally
// filtered by type. The cursor is closed when iteration stops, including
// early termination by the caller.
func (s *EventStore) AllEvents(ctx context.Context, types ...string) (iter.Seq2[streamkit.Event, error], error) {
	filter := bson.M{}
	if len(types) > 0 {
		filter["type"] = bson.M{"$in": types}
	}
	cur, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	return func(yield func(streamkit.Event, error) bool) {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var rec eventRecord
			if err := cur.Decode(&rec); err != nil {
				yield(streamkit.Event{}, err)
				return
			}
			e, err := fromRecord(rec)
			if !yield(e, err) || err != nil {
				return
			}
		}
	}, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]streamkit.Event, error) {
	defer cur.Close(ctx)
	var events []streamkit.Event
	for cur.Next(ctx) {
		var rec eventRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		e, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, cur.Err()
}

// Close disconnects the underlying client.
func (s *EventStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
