// Package tags normalizes the free-form tag lists (services, languages,
// event tags) that profiles and events carry. The data model treats these
// as sets, so duplicates and blank entries are dropped on the way in.
package tags

import (
	"strings"
)

// Normalize trims whitespace from each entry and removes duplicates and
// empty strings. Order of first occurrence is preserved.
//
// Example:
//
//	Normalize([]string{"  food ", "legal aid", "food", "", "  "})
//	// Returns: []string{"food", "legal aid"}
func Normalize(values []string) []string {
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

// NormalizeFold is like Normalize but lowercases each entry, so "English"
// and "english" collapse to one tag.
func NormalizeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		folded := strings.ToLower(strings.TrimSpace(v))
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; !ok {
			seen[folded] = struct{}{}
			result = append(result, folded)
		}
	}

	return result
}
