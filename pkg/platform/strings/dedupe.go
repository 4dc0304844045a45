// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// NormalizeList trims and lowercases each entry, splits comma-joined entries
// (as env overrides produce them) and drops blanks and repeats. Order is kept.
//
//	NormalizeList([]string{" ENG ", "ara,eng", ""}) // []string{"eng", "ara"}
func NormalizeList(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			item := strings.ToLower(strings.TrimSpace(part))
			if item == "" {
				continue
			}
			if _, ok := seen[item]; !ok {
				seen[item] = struct{}{}
				result = append(result, item)
			}
		}
	}
	return result
}
