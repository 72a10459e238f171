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

import "context"

// namespaceKey is the context key under which the current namespace is
// stored. A namespace scopes storage and bus lookups so that a single
// set of drivers can serve multiple tenants.
type namespaceKey struct{}

// DefaultNamespace is used when no namespace has been set on a context.
const DefaultNamespace = "default"

// NewContextWithNamespace returns a copy of ctx with namespace set.
func NewContextWithNamespace(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, namespaceKey{}, namespace)
}

// NamespaceFromContext returns the namespace set on ctx, or
// DefaultNamespace if none was set.
func NamespaceFromContext(ctx context.Context) string {
	if ns, ok := ctx.Value(namespaceKey{}).(string); ok && ns != "" {
		return ns
	}
	return DefaultNamespace
}

// ContextMarshaler extracts the subset of a context that must travel
// with a Message across process boundaries (e.g. over a MessageBus
// driver that serializes payloads) into a plain map.
type ContextMarshaler func(ctx context.Context, vals map[string]any)

// ContextUnmarshaler rebuilds context values from a plain map produced
// by a ContextMarshaler.
type ContextUnmarshaler func(ctx context.Context, vals map[string]any) context.Context

var (
	contextMarshalers   []ContextMarshaler
	contextUnmarshalers []ContextUnmarshaler
)

// RegisterContextMarshaler registers m to run whenever MarshalContext is
// called. Drivers that need to carry additional context values (beyond
// the namespace, which is always carried) register one at init time.
func RegisterContextMarshaler(m ContextMarshaler) {
	contextMarshalers = append(contextMarshalers, m)
}

// RegisterContextUnmarshaler registers u to run whenever UnmarshalContext
// is called.
func RegisterContextUnmarshaler(u ContextUnmarshaler) {
	contextUnmarshalers = append(contextUnmarshalers, u)
}

// MarshalContext extracts ctx into a plain map suitable for a Message's
// Context field, always including the namespace.
func MarshalContext(ctx context.Context) map[string]any {
	vals := map[string]any{"namespace": NamespaceFromContext(ctx)}
	for _, m := range contextMarshalers {
		m(ctx, vals)
	}
	return vals
}

// UnmarshalContext rebuilds a context.Context from vals, as produced by
// MarshalContext.
func UnmarshalContext(ctx context.Context, vals map[string]any) context.Context {
	if ns, ok := vals["namespace"].(string); ok && ns != "" {
		ctx = NewContextWithNamespace(ctx, ns)
	}
	for _, u := range contextUnmarshalers {
		ctx = u(ctx, vals)
	}
	return ctx
}
