// Copyright (c) 2018 - The Event Horizon authors.
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

// Matcher is a func that can match a message against a criteria. Used by
// EventStore.Once as the optional filter.
type Matcher func(Event) bool

// MatchAny matches any event.
func MatchAny() Matcher {
	return func(Event) bool { return true }
}

// MatchType matches a specific message type.
func MatchType(t string) Matcher {
	return func(e Event) bool { return e.Type == t }
}

// MatchAnyType matches if the event's type is any of types.
func MatchAnyType(types ...string) Matcher {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// MatchAggregate matches a specific aggregate ID.
func MatchAggregate(id ID) Matcher {
	return func(e Event) bool { return e.AggregateID.Equal(id) }
}

// MatchAllOf matches if every matcher matches.
func MatchAllOf(matchers ...Matcher) Matcher {
	return func(e Event) bool {
		for _, m := range matchers {
			if !m(e) {
				return false
			}
		}
		return true
	}
}

// MatchAnyOf matches if any matcher matches.
func MatchAnyOf(matchers ...Matcher) Matcher {
	return func(e Event) bool {
		for _, m := range matchers {
			if m(e) {
				return true
			}
		}
		return false
	}
}
