package stringutils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern          = regexp.MustCompile(`(?i)(https?://|ftp://|www\.)[^\s]+`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	multiSpacePattern   = regexp.MustCompile(`\s+`)
)

// DefaultTitleLength is the rune budget for conversation titles derived from
// the first user message, ellipsis included.
const DefaultTitleLength = 50

// SanitizeTitleContent strips URLs, markdown links, and control noise from
// content so it can serve as a conversation title.
func SanitizeTitleContent(content string) string {
	content = urlPattern.ReplaceAllString(content, "")
	content = markdownLinkPattern.ReplaceAllString(content, "$1")

	var result strings.Builder
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) ||
			r == '.' || r == ',' || r == '!' || r == '?' || r == '-' || r == '\'' {
			result.WriteRune(r)
		}
	}
	content = result.String()

	content = multiSpacePattern.ReplaceAllString(content, " ")
	content = strings.TrimSpace(content)
	content = strings.TrimRight(content, " .,!?-'")

	return content
}

// TruncateTitle caps title at maxLen runes. Longer titles are cut so that
// content plus the appended ellipsis never exceed maxLen, preferring a word
// boundary when one falls in the second half.
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}

	const ellipsis = "..."
	contentLimit := maxLen - len(ellipsis)
	if contentLimit < 0 {
		contentLimit = 0
	}

	truncated := string(runes[:contentLimit])
	minLen := contentLimit / 2

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > minLen {
		truncated = strings.TrimRight(truncated[:lastSpace], " ")
	}

	return truncated + ellipsis
}

// DeriveTitle builds a conversation title from the first user message:
// sanitized, trimmed, and capped at DefaultTitleLength runes.
func DeriveTitle(content string) string {
	sanitized := SanitizeTitleContent(content)
	if sanitized == "" {
		return "New Conversation"
	}
	return TruncateTitle(sanitized, DefaultTitleLength)
}
