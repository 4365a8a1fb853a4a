package generator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxInputLength is the maximum prompt length in characters
const MaxInputLength = 2000

var (
	ErrEmptyInput     = errors.New("input cannot be empty")
	ErrInputTooLong   = fmt.Errorf("input too long: maximum %d characters allowed", MaxInputLength)
	ErrBlockedPattern = errors.New("input contains blocked pattern")
)

// blockedPatterns catch SQL injection, markup injection and prompt injection
// attempts. They are matched against the lower-cased prompt.
var blockedPatterns = func() []*regexp.Regexp {
	patterns := []string{
		`\b(drop|delete|truncate|alter|create)\s+(table|database|schema)`,
		`\bunion\s+select\b`,
		`\bselect\s+.*\s+from\s+`,
		`\bwhere\s+1\s*=\s*1`,
		`--`,
		`/\*.*\*/`,

		`<script[^>]*>`,
		`</script>`,
		`javascript:`,
		`<iframe`,
		`<img[^>]+onerror`,
		`<img[^>]+src\s*=`,

		`\bignore\s+(all\s+)?(previous|above|prior)\s+instructions`,
		`\bsystem\s*:\s*you\s+are\s+(now\s+)?`,
		`\bassistant\s*:\s*i\s+will`,
		`\breplace\s+your\s+instructions`,
		`\bforget\s+(everything|all|your\s+rules)`,
		`\bact\s+as\s+(if\s+)?you\s+(are|were)\s+`,
	}
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}()

// ValidatePrompt checks that a prompt is safe to send to the LLM
func ValidatePrompt(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrEmptyInput
	}
	if utf8.RuneCountInString(trimmed) > MaxInputLength {
		return ErrInputTooLong
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(lower) {
			return ErrBlockedPattern
		}
	}
	return nil
}

// IsInputError reports whether err was caused by a rejected prompt
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInputTooLong) || errors.Is(err, ErrBlockedPattern)
}
