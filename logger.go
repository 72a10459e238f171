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
	"log"
)

// Logger is the minimal surface the core writes to: async publish
// failures and saga dispatch failures that must not propagate into the
// bus Publish call path. It is deliberately narrow; structured and
// leveled logging belongs one layer up, in decorators like
// middleware/commandhandler/logging.
type Logger interface {
	Error(ctx context.Context, msg string, keyvals ...any)
}

// defaultLogger writes to the standard library's log package, used when
// no Logger is configured.
type defaultLogger struct{}

func (defaultLogger) Error(_ context.Context, msg string, keyvals ...any) {
	log.Println(append([]any{"ERROR", msg}, keyvals...)...)
}
