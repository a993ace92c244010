// Package strings holds small string-slice helpers for config parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element and drops empties and duplicates,
// preserving first-seen order. Used for comma-split lists from the
// environment, like Kafka broker addresses.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
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
