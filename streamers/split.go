package streamers

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxMessageLen is the longest message posted before splitting
	DefaultMaxMessageLen = 3000

	codeFence    = "```"
	paragraphGap = "\n\n"
)

// SplitMessage splits an over-long message into the part to keep in the current
// message and the remainder for a new one. The split happens at the last code
// fence when the text has one, otherwise at the last blank line, keeping code
// fences balanced in the kept part. Text without either separator is cut hard at maxLen.
// The head is never longer than maxLen.
func SplitMessage(message string, maxLen int) (head, rest string) {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}
	if utf8.RuneCountInString(message) <= maxLen {
		return message, ""
	}

	key := paragraphGap
	if strings.Contains(message, codeFence) {
		key = codeFence
	}

	parts := strings.Split(message, key)
	last := parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	if len(parts)%2 == 0 {
		head = strings.Join(parts, key) + key
		rest = last
	} else {
		head = strings.Join(parts, key)
		rest = key + last
	}

	if rest == "" || strings.TrimSpace(strings.ReplaceAll(head, key, "")) == "" {
		return hardSplit(message, maxLen)
	}
	if utf8.RuneCountInString(head) > maxLen {
		head, more := SplitMessage(head, maxLen)
		return head, more + rest
	}
	return head, rest
}

// SplitAll splits a message into pieces no longer than maxLen runes
func SplitAll(message string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}
	if utf8.RuneCountInString(message) <= maxLen {
		return []string{message}
	}
	head, rest := SplitMessage(message, maxLen)
	return append(SplitAll(head, maxLen), SplitAll(rest, maxLen)...)
}

func hardSplit(message string, maxLen int) (string, string) {
	runes := []rune(message)
	return string(runes[:maxLen]), string(runes[maxLen:])
}
