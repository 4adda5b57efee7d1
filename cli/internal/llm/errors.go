package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Kind sub-classifies a generation failure for user guidance.
type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindTimeout
	KindRateLimit
	KindNetwork
	KindEmpty
	KindSetup
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	case KindNetwork:
		return "network"
	case KindEmpty:
		return "empty"
	case KindSetup:
		return "setup"
	default:
		return "generic"
	}
}

// GenerationError is returned when the backend could not produce a message.
// Error() is the user-facing line; Hint() carries remediation text and the
// cause is available through Unwrap.
type GenerationError struct {
	Kind     Kind
	Provider string
	Timeout  int // seconds; used by the timeout hint
	Err      error

	msg  string
	hint string
}

func (e *GenerationError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	switch e.Kind {
	case KindAuth:
		return "Authentication failed. Check your API key"
	case KindTimeout:
		return fmt.Sprintf("Request timed out after %d seconds.", e.Timeout)
	case KindRateLimit:
		return "Rate limit exceeded. Wait a moment and try again."
	case KindNetwork:
		return "Network error. Check your internet connection."
	case KindEmpty:
		return "LLM returned empty response"
	default:
		return "Failed to generate commit message"
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Hint returns remediation guidance for the failure, or "".
func (e *GenerationError) Hint() string {
	if e.hint != "" {
		return e.hint
	}
	switch e.Kind {
	case KindAuth:
		return "  export OPENAI_API_KEY='sk-...'\n  export ANTHROPIC_API_KEY='sk-ant-...'"
	case KindTimeout:
		return fmt.Sprintf("Try increasing timeout:\n  export GITMSG_TIMEOUT=%d", e.Timeout*2)
	case KindGeneric:
		return "This might be a temporary issue. Try again or check:\n" +
			"  - API key is valid\n" +
			"  - Internet connection is working\n" +
			"  - Provider status page for outages"
	}
	return ""
}

// Classify maps a backend error to a *GenerationError. Status codes from
// go-openai errors are checked first, then the lowercased error text.
// context.Canceled is returned unchanged so interrupts stay distinguishable.
func Classify(err error, provider string, timeout int) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	gen := func(k Kind) error {
		return &GenerationError{Kind: k, Provider: provider, Timeout: timeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return gen(KindTimeout)
	}
	if k, ok := kindFromStatus(statusOf(err)); ok {
		return gen(k)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return gen(KindTimeout)
	}
	if errors.Is(err, ErrUnreachable) {
		return gen(KindNetwork)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "authentication"):
		return gen(KindAuth)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return gen(KindTimeout)
	case strings.Contains(msg, "rate limit"):
		return gen(KindRateLimit)
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection"):
		return gen(KindNetwork)
	}
	return gen(KindGeneric)
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

func kindFromStatus(code int) (Kind, bool) {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth, true
	case http.StatusTooManyRequests:
		return KindRateLimit, true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout, true
	}
	return 0, false
}

// statusError is a non-2xx reply from a backend that has no typed error of its own.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("HTTP %d", e.code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}
