// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package to converts between Go values and the pointer-heavy shapes of Azure SDK request bodies.
package to

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// ValOrZero returns the value of the pointer or the zero value of the type if the pointer is nil.
func ValOrZero[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// SliceOfPtrs returns a slice of pointers to copies of the elements of in.
// A nil or empty input yields nil, so the field is omitted from the request body.
func SliceOfPtrs[T any](in ...T) []*T {
	if len(in) == 0 {
		return nil
	}
	res := make([]*T, len(in))
	for i := range in {
		res[i] = Ptr(in[i])
	}
	return res
}

// StringSliceOf converts a slice of string-like values to pointers to plain strings.
func StringSliceOf[T ~string](in []T) []*string {
	if len(in) == 0 {
		return nil
	}
	res := make([]*string, len(in))
	for i, v := range in {
		res[i] = Ptr(string(v))
	}
	return res
}

// MapOfPtrs converts a map of values to a map of pointers.
func MapOfPtrs[K comparable, V any](in map[K]V) map[K]*V {
	if len(in) == 0 {
		return nil
	}
	res := make(map[K]*V, len(in))
	for k, v := range in {
		res[k] = Ptr(v)
	}
	return res
}

// Vals dereferences a slice of pointers, skipping nil elements.
func Vals[T any](in []*T) []T {
	res := make([]T, 0, len(in))
	for _, v := range in {
		if v == nil {
			continue
		}
		res = append(res, *v)
	}
	return res
}
