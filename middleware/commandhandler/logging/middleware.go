// Copyright (c) 2024 - The Event Horizon authors.
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

// Package logging decorates a streamkit.CommandHandlerFunc with
// structured logging via github.com/sirupsen/logrus.
package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/streamkit/streamkit"
)

// NewMiddleware returns a decorator that logs every command dispatch and
// its outcome through logger.
func NewMiddleware(logger *logrus.Entry) func(streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
	return func(h streamkit.CommandHandlerFunc) streamkit.CommandHandlerFunc {
		return func(ctx context.Context, cmd streamkit.Command) (streamkit.EventStream, error) {
			logger.Infof("dispatch: %s (aggregateID: %s)", cmd.Type, cmd.AggregateID)

			events, err := h(ctx, cmd)
			if err != nil {
				logger.Errorf("dispatch failed: %s (aggregateID: %s): %v", cmd.Type, cmd.AggregateID, err)
			}

			return events, err
		}
	}
}
