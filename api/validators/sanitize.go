package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims whitespace, strips control characters and truncates to
// maxLen. Names and path parameters end up in provider API calls and logs, so
// they never carry control bytes through.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	cleaned = strings.TrimSpace(cleaned)
	if maxLen > 0 && len(cleaned) > maxLen {
		return cleaned[:maxLen]
	}
	return cleaned
}
