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

package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamkit/streamkit"
	"github.com/streamkit/streamkit/uuid"
)

func TestMiddleware(t *testing.T) {
	cmd := streamkit.Command{Type: "LongCommand", AggregateID: streamkit.NewID(uuid.New())}

	inner := func(_ context.Context, _ streamkit.Command) (streamkit.EventStream, error) {
		time.Sleep(100 * time.Millisecond)
		return nil, nil
	}

	l := NewLocalLock()
	h := NewMiddleware(l)(inner)

	go func() {
		_, err := h(context.Background(), cmd)
		require.NoError(t, err)
	}()

	time.Sleep(10 * time.Millisecond)

	_, err := h(context.Background(), cmd)
	require.True(t, errors.Is(err, ErrLockExists))

	time.Sleep(100 * time.Millisecond)

	_, err = h(context.Background(), cmd)
	require.NoError(t, err)
}
