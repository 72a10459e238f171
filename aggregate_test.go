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

package streamkit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// counter is a minimal Aggregate used to exercise AggregateBase.
type counter struct {
	*AggregateBase
	count int
}

func newCounter(id ID) *counter {
	return &counter{AggregateBase: NewAggregateBase(id)}
}

func (c *counter) State() any { return c.count }

func (c *counter) Handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case "Increment":
		c.apply(c.Emit("Incremented", nil))
		return nil
	case "Decrement":
		if c.count == 0 {
			return errors.New("cannot decrement below zero")
		}
		c.apply(c.Emit("Decremented", nil))
		return nil
	default:
		return errors.New("unknown command")
	}
}

func (c *counter) apply(e Event) {
	switch e.Type {
	case "Incremented":
		c.count++
	case "Decremented":
		c.count--
	}
}

func TestAggregateBaseEmitAdvancesVersionAndBuffers(t *testing.T) {
	c := newCounter(NewID("counter-1"))
	require.NoError(t, c.Handle(context.Background(), Command{Type: "Increment"}))

	require.Equal(t, uint64(1), c.Version())
	require.Len(t, c.Changes(), 1)
	require.Equal(t, 1, c.State())

	event := c.Changes()[0]
	require.Equal(t, "Incremented", event.Type)
	require.True(t, c.ID().Equal(event.AggregateID))
	require.Equal(t, uint64(1), *event.AggregateVersion)
}

func TestAggregateBaseRejectsInvalidCommandWithoutMutating(t *testing.T) {
	c := newCounter(NewID("counter-1"))
	err := c.Handle(context.Background(), Command{Type: "Decrement"})
	require.Error(t, err)
	require.Equal(t, uint64(0), c.Version())
	require.Empty(t, c.Changes())
}

func TestAggregateBaseClearChanges(t *testing.T) {
	c := newCounter(NewID("counter-1"))
	require.NoError(t, c.Handle(context.Background(), Command{Type: "Increment"}))
	c.ClearChanges()
	require.Empty(t, c.Changes())
	require.Equal(t, uint64(1), c.Version())
}

func TestAggregateBaseMutateReplaysWithoutBuffering(t *testing.T) {
	c := newCounter(NewID("counter-1"))
	v := uint64(1)
	c.Mutate(Event{Type: "Incremented", AggregateVersion: &v})
	require.Equal(t, uint64(1), c.Version())
	require.Empty(t, c.Changes())
}

func TestAggregateBaseMutateIgnoresEventWithoutVersion(t *testing.T) {
	c := newCounter(NewID("counter-1"))
	c.Mutate(Event{Type: "Incremented"})
	require.Equal(t, uint64(0), c.Version())
}

func TestAggregateBaseRestoreVersion(t *testing.T) {
	c := newCounter(NewID("counter-1"))
	c.RestoreVersion(5)
	require.Equal(t, uint64(5), c.Version())
}
