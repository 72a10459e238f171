// Copyright (c) 2015 - The Event Horizon authors.
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

import "reflect"

// newZeroLike allocates a new zero value of src's underlying struct type
// and returns a pointer to it, suitable as a copier.Copy destination. Only
// structs and pointers-to-struct are cloned this way; any other kind of
// payload (strings, maps, primitives already safe to share) is returned as
// nil so the caller keeps sharing the original value.
func newZeroLike(src any) any {
	t := reflect.TypeOf(src)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return reflect.New(t).Interface()
}

// derefIfPointer mirrors the pointer-ness of the original payload: if dst
// is a *T but the caller's convention is to carry T by value, callers that
// need the pointer form keep it; this repository's event payloads are
// carried by value, so dst is dereferenced.
func derefIfPointer(dst any) any {
	v := reflect.ValueOf(dst)
	if v.Kind() == reflect.Ptr {
		return v.Elem().Interface()
	}
	return dst
}
