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

package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

func TestMiddlewareHandlesAsynchronously(t *testing.T) {
	var handled []streamkit.Event
	mw, errCh := NewMiddleware()
	h := mw(func(_ context.Context, event streamkit.Event) error {
		handled = append(handled, event)
		return nil
	})

	event := streamkit.Event{Type: "Test", AggregateID: streamkit.NewID(uuid.New())}
	require.NoError(t, h(context.Background(), event))

	select {
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Millisecond):
	}

	require.Eventually(t, func() bool { return len(handled) == 1 }, time.Second, time.Millisecond)
}

func TestMiddlewareReportsFailureOnChannel(t *testing.T) {
	handlingErr := errors.New("handling error")
	mw, errCh := NewMiddleware()
	h := mw(func(_ context.Context, event streamkit.Event) error {
		return handlingErr
	})

	event := streamkit.Event{Type: "Test", AggregateID: streamkit.NewID(uuid.New())}
	require.NoError(t, h(context.Background(), event))

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, handlingErr)
		require.Equal(t, event, err.Event)
	case <-time.After(time.Second):
		t.Fatal("expected an async error")
	}
}
