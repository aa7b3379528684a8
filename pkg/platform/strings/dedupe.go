// Package strings provides string slice utilities shared by the view builder.
package strings

import "strings"

// Dedupe removes duplicates and empty strings from a slice, trimming
// whitespace from each element. First-seen order is preserved, which the
// consolidation view relies on to keep the primary contact's values first.
func Dedupe(values []string) []string {
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
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
