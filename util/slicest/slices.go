// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// Package slicest holds small generic slice helpers.
package slicest

// Map returns fn applied to every element of s.
func Map[T, U any, S ~[]T](s S, fn func(T) U) []U {
	result := make([]U, len(s))
	for i, v := range s {
		result[i] = fn(v)
	}
	return result
}

// Filter returns the elements of s for which keep is true, in order.
func Filter[T any, S ~[]T](s S, keep func(T) bool) S {
	var result S
	for _, v := range s {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}

// ToMap builds a map from s using fn for keys and values. Later elements
// win on duplicate keys.
func ToMap[T any, K comparable, V any, S ~[]T](s S, fn func(T) (K, V)) map[K]V {
	result := make(map[K]V, len(s))
	for _, t := range s {
		k, v := fn(t)
		result[k] = v
	}
	return result
}
