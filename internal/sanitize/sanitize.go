// Package sanitize strips privacy-tagged spans out of transcript text
// before it is persisted or handed to the extractor.
package sanitize

import "regexp"

// Tags that mark a span as excluded from memory.
var tagNames = []string{"private", "no-memory", "secret"}

// MaxTagOccurrences bounds how many tagged spans are stripped per call, so
// a malformed or adversarial transcript (thousands of open tags) cannot
// make sanitization take unbounded time.
const MaxTagOccurrences = 100

var tagPatterns = buildPatterns()

func buildPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(tagNames))
	for i, name := range tagNames {
		patterns[i] = regexp.MustCompile(`(?s)<` + name + `>.*?</` + name + `>`)
	}
	return patterns
}

// Strip removes every <private>, <no-memory>, and <secret> tagged span
// from text, up to MaxTagOccurrences total across all three tags combined.
// Unterminated tags (no matching close tag) are left in place rather than
// guessed at — an unterminated tag is a malformed transcript, not a
// sanitization target.
func Strip(text string) string {
	count := 0
	out := text
	for _, pattern := range tagPatterns {
		out = replaceUpTo(pattern, out, &count, MaxTagOccurrences)
	}
	return out
}

func replaceUpTo(pattern *regexp.Regexp, text string, count *int, max int) string {
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		if *count >= max {
			return match
		}
		*count++
		return ""
	})
}
