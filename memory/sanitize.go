package memory

import (
	"regexp"
	"strings"
)

// Local and chatty models often wrap their answer in explicit reasoning
// tags or markdown fences. The parsers in this package strip both before
// attempting to decode JSON.

var thinkingTagRe = regexp.MustCompile(`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`)

// removeThinkingTags strips reasoning blocks such as <think>...</think>
// from an LLM response. Input without tags is returned trimmed.
func removeThinkingTags(s string) string {
	return strings.TrimSpace(thinkingTagRe.ReplaceAllString(s, ""))
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]*)\\s*(.*?)```")

// extractJSON returns the best-effort JSON payload of a chatty LLM
// response: reasoning tags are removed, a fenced code block is unwrapped
// if present, and leading/trailing prose around the outermost JSON object
// or array is discarded.
func extractJSON(s string) string {
	s = removeThinkingTags(s)

	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return s
	}
	return s[start : end+1]
}
