package util

import (
	"fmt"
	"sort"
)

// EqualSlices compares two slices element-wise with the given
// comparator, optionally ignoring order.
func EqualSlices[T any](a, b []T, equal func(x, y T) bool, ignoreOrder bool) bool {
	if len(a) != len(b) {
		return false
	}

	if ignoreOrder {
		a = sortedCopy(a)
		b = sortedCopy(b)
	}

	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sortedCopy[T any](s []T) []T {
	out := append([]T(nil), s...)
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}
