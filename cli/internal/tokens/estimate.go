// Package tokens provides simple token estimation for prompts and
// context-limit checks. Estimation is a byte-based chars-per-token heuristic
// with a configurable divisor.
package tokens

import (
	"fmt"
	"math"
)

// DefaultCharsPerToken is used when the caller passes a non-positive divisor
// (roughly 4 bytes per token for typical English/code).
const DefaultCharsPerToken = 4

// DefaultContextLimit is the context window assumed when warning about
// oversized prompts.
const DefaultContextLimit = 128000

// DefaultWarnThreshold is the fraction of DefaultContextLimit at which the CLI warns.
const DefaultWarnThreshold = 0.9

// Estimate returns an estimated token count for text: ceil(len(text)/charsPerToken)
// in bytes, so with 4 chars per token 1–4 bytes map to 1 token, 5–8 to 2, etc.
// Empty string returns 0. charsPerToken <= 0 uses DefaultCharsPerToken.
func Estimate(text string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// WarnIfOver returns a non-empty warning string when the total estimated
// tokens (promptTokens + responseReserve) meet or exceed the warn threshold
// of the context limit. responseReserve is the max_tokens budget requested
// from the backend. If contextLimit <= 0, returns "".
func WarnIfOver(promptTokens, responseReserve, contextLimit int, warnThreshold float64) string {
	if contextLimit <= 0 {
		return ""
	}
	if promptTokens < 0 || responseReserve < 0 {
		return ""
	}
	if responseReserve > math.MaxInt-promptTokens {
		return fmt.Sprintf("token estimate overflow (prompt %d + reserve %d)", promptTokens, responseReserve)
	}
	total := promptTokens + responseReserve
	limit := float64(contextLimit) * warnThreshold
	threshold := int(limit)
	if limit > float64(threshold) {
		threshold++
	}
	if total < threshold {
		return ""
	}
	return fmt.Sprintf("estimated tokens %d (prompt %d + reserve %d) exceeds %.0f%% of context limit %d",
		total, promptTokens, responseReserve, warnThreshold*100, contextLimit)
}
