// Package strings provides string slice helpers.
package strings

import (
	"slices"
	"strings"
)

// DedupeExcept trims each element and drops empties, duplicates and any
// value listed in exclude. Order is preserved.
//
//	DedupeExcept([]string{" bob", "alice", "bob", ""}, "alice")
//	// Returns: []string{"bob"}
func DedupeExcept(values []string, exclude ...string) []string {
	return dedupe(values, strings.TrimSpace, exclude)
}

// DedupeAndTrimLower trims, lowercases and dedupes. Used for values that
// compare case-insensitively, such as role names.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}, nil)
}

func dedupe(values []string, normalize func(string) string, exclude []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := normalize(v)
		if n == "" || slices.Contains(exclude, n) {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}
