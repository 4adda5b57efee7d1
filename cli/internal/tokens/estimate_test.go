package tokens

import (
	"math"
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		text          string
		charsPerToken int
		want          int
	}{
		{"empty", "", 4, 0},
		{"one_char", "x", 4, 1},
		{"four_chars", "abcd", 4, 1},
		{"five_chars", "abcde", 4, 2},
		{"100_chars", strings.Repeat("x", 100), 4, 25},
		{"unicode_multi_byte", "café", 4, 2},
		{"divisor_one", "abc", 1, 3},
		{"divisor_ten", strings.Repeat("x", 21), 10, 3},
		{"zero_divisor_uses_default", "abcdefgh", 0, 2},
		{"negative_divisor_uses_default", "abcde", -3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Estimate(tt.text, tt.charsPerToken); got != tt.want {
				t.Errorf("Estimate(%q, %d) = %d, want %d", tt.text, tt.charsPerToken, got, tt.want)
			}
		})
	}
}

func TestWarnIfOver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		promptTokens    int
		responseReserve int
		contextLimit    int
		warnThreshold   float64
		wantEmpty       bool
		wantContains    []string
	}{
		{"under_threshold", 1000, 500, DefaultContextLimit, DefaultWarnThreshold, true, nil},
		{"at_threshold", 114700, 500, DefaultContextLimit, DefaultWarnThreshold, false, []string{"115200", "90%", "128000"}},
		{"over_threshold", 120000, 500, DefaultContextLimit, DefaultWarnThreshold, false, []string{"prompt 120000", "reserve 500"}},
		{"context_limit_zero", 100, 0, 0, 0.9, true, nil},
		{"negative_tokens", -1, 0, 100, 0.9, true, nil},
		{"threshold_one_under_limit", 32767, 0, 32768, 1.0, true, nil},
		{"overflow_returns_warning", math.MaxInt, 1, 32768, 0.9, false, []string{"overflow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := WarnIfOver(tt.promptTokens, tt.responseReserve, tt.contextLimit, tt.warnThreshold)
			if tt.wantEmpty {
				if got != "" {
					t.Errorf("WarnIfOver(...) = %q, want empty", got)
				}
				return
			}
			if got == "" {
				t.Fatalf("WarnIfOver(...) = empty, want containing %v", tt.wantContains)
			}
			for _, sub := range tt.wantContains {
				if !strings.Contains(got, sub) {
					t.Errorf("WarnIfOver(...) = %q, want to contain %q", got, sub)
				}
			}
		})
	}
}
