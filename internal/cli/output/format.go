package output

import (
	"strings"
)

// FormatHeader formats a markdown heading.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue formats a markdown list item with a bold label.
func FormatKeyValue(key, value string) string {
	return "- **" + key + ":** " + value
}

// FormatList formats items as a comma-separated list, or "none".
func FormatList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
