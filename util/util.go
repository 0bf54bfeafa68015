package util

import (
	"strings"
)

// Cleans a string we might find in deposit.properties, trimming
// leading and trailing spaces, single quotes and double quotes. Note
// that leading and trailing spaces inside the quotes are not trimmed.
func CleanString(str string) string {
	cleanStr := strings.TrimSpace(str)
	// Strip leading and traling quotes, but only if string has matching
	// quotes at both ends.
	if len(cleanStr) >= 2 && (strings.HasPrefix(cleanStr, "'") && strings.HasSuffix(cleanStr, "'") ||
		strings.HasPrefix(cleanStr, "\"") && strings.HasSuffix(cleanStr, "\"")) {
		return cleanStr[1 : len(cleanStr)-1]
	}
	return cleanStr
}

// Returns true if the list of strings contains item.
func StringListContains(list []string, item string) bool {
	for i := range list {
		if list[i] == item {
			return true
		}
	}
	return false
}

// StringListDifference returns the items of list that are not in
// exclude, in their original order.
func StringListDifference(list []string, exclude map[string]bool) []string {
	result := make([]string, 0, len(list))
	for _, item := range list {
		if !exclude[item] {
			result = append(result, item)
		}
	}
	return result
}
