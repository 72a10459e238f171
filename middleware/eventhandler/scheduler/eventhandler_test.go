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

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
)

func TestScheduler(t *testing.T) {
	var mu sync.Mutex
	var handled []streamkit.Event

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()

	mw, s := NewMiddleware(schedulerCtx)
	h := mw(func(_ context.Context, event streamkit.Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, event)
		return nil
	})

	expectedEvent := streamkit.Event{Type: "Test", AggregateID: streamkit.NewID(uuid.New())}

	require.NoError(t, h(context.Background(), expectedEvent))
	mu.Lock()
	require.Equal(t, []streamkit.Event{expectedEvent}, handled)
	mu.Unlock()

	scheduleCtx, cancelSchedule := context.WithCancel(context.Background())
	defer cancelSchedule()

	require.NoError(t, s.ScheduleEvent(scheduleCtx, "* * * * * * *", func(time.Time) streamkit.Event {
		return expectedEvent
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) >= 2
	}, 3*time.Second, 50*time.Millisecond)
}
