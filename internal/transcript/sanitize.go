// Package transcript sanitizes recognized and generated text before it is displayed or forwarded.
package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength is the transcript cap in characters.
const MaxLength = 1000

var (
	markupPattern       = regexp.MustCompile(`[<>]`)
	scriptURIPattern    = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+=`)
)

// Sanitize strips markup characters, script URIs, and inline event-handler
// attributes, trims surrounding whitespace, and truncates to MaxLength.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(input string) string {
	text := strings.ToValidUTF8(input, "")
	for {
		next := stripUnsafe(text)
		if next == text {
			break
		}
		text = next
	}

	text = strings.TrimSpace(text)
	text = Truncate(text, MaxLength)
	return strings.TrimSpace(text)
}

// Truncate cuts text to at most limit characters.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

// stripUnsafe removing one pattern can splice a new match together, so callers loop to a fixpoint.
func stripUnsafe(text string) string {
	text = markupPattern.ReplaceAllString(text, "")
	text = scriptURIPattern.ReplaceAllString(text, "")
	return eventHandlerPattern.ReplaceAllString(text, "")
}
