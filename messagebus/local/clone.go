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

package local

import "reflect"

// newZeroLike allocates a fresh, addressable zero value with the same
// type as src, returned as a pointer so copier.Copy has somewhere to
// write. Returns nil unless src is a struct or a pointer to a struct.
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

// derefIfPointer unwraps a pointer produced by newZeroLike back into a
// plain value, matching the shape of the original payload.
func derefIfPointer(dst any) any {
	v := reflect.ValueOf(dst)
	if v.Kind() == reflect.Ptr {
		return v.Elem().Interface()
	}
	return dst
}
