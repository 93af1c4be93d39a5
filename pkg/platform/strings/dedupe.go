// Package strings provides helpers for string-backed identifier lists.
package strings

import (
	"strings"
)

// DedupeIDs trims each identifier and drops empties and repeats, preserving
// first-seen order. It works on any string-backed ID type.
//
//	DedupeIDs([]PartyID{" P1", "P2", "P1", ""}) // []PartyID{"P1", "P2"}
func DedupeIDs[T ~string](values []T) []T {
	if len(values) == 0 {
		return values
	}

	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		trimmed := T(strings.TrimSpace(string(v)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
