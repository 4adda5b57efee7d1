package commitmsg

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gitmsg/cli/internal/format"
)

// Validation failure reasons.
const (
	ReasonEmpty   = "empty"
	ReasonTooLong = "too_long"
	ReasonFormat  = "format"
)

var conventionalRe = regexp.MustCompile(`^(feat|fix|docs|style|refactor|test|chore)(\(.+\))?: .+`)

// ValidationError reports a generated message that breaks the selected format.
type ValidationError struct {
	Reason  string
	Format  format.Format
	Message string
	Length  int // characters, set for ReasonTooLong
	Limit   int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "Generated message is empty"
	case ReasonTooLong:
		return fmt.Sprintf("Message too long: %d characters (max %d)", e.Length, e.Limit)
	}
	if e.Format == format.Gitmoji {
		return "Message does not start with an emoji.\nExpected: emoji description\nGot: " + e.Message
	}
	return "Message does not match Conventional Commits format.\nExpected: type(scope): description\nGot: " + e.Message
}

// Hint suggests how to recover.
func (e *ValidationError) Hint() string {
	if e.Reason == ReasonTooLong {
		return "Try again, or raise the limit: gitmsg config set max_message_length <n>"
	}
	return "Try again, or add --hint to steer the model."
}

// Validate checks message against f and maxLength, in order: not blank,
// at most maxLength characters, then the format grammar. message is not
// modified. Length counts Unicode code points. An undeclared f is a caller
// error and is reported as such, not as a *ValidationError.
func Validate(message string, f format.Format, maxLength int) error {
	if !f.Valid() {
		return fmt.Errorf("unknown format %v: must be one of %v", f, format.Names())
	}
	if strings.TrimSpace(message) == "" {
		return &ValidationError{Reason: ReasonEmpty, Format: f, Message: message, Limit: maxLength}
	}
	if n := utf8.RuneCountInString(message); n > maxLength {
		return &ValidationError{Reason: ReasonTooLong, Format: f, Message: message, Length: n, Limit: maxLength}
	}
	ok := true
	switch f {
	case format.Conventional:
		ok = conventionalRe.MatchString(message)
	case format.Gitmoji:
		ok = startsWithEmoji(message)
	}
	if !ok {
		return &ValidationError{Reason: ReasonFormat, Format: f, Message: message, Limit: maxLength}
	}
	return nil
}

// startsWithEmoji reports whether s opens with a rune from the common emoji
// blocks (U+1F300–1F9FF, U+2600–26FF, U+2700–27BF), an optional variation
// selector, then a space.
func startsWithEmoji(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	switch {
	case r >= 0x1F300 && r <= 0x1F9FF:
	case r >= 0x2600 && r <= 0x26FF:
	case r >= 0x2700 && r <= 0x27BF:
	default:
		return false
	}
	rest := strings.TrimPrefix(s[size:], "\uFE0F")
	return strings.HasPrefix(rest, " ")
}

// EffectiveMaxLength is the limit Validate should enforce: maxChars when
// configured (> 0), otherwise maxMessageLength.
func EffectiveMaxLength(maxChars, maxMessageLength int) int {
	if maxChars > 0 {
		return maxChars
	}
	return maxMessageLength
}
