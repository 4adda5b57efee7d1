// Package erruser provides errors whose Error() returns only a user-facing
// message; the cause is available via Unwrap() for Details or logs, and an
// optional hint tells the user what to do next.
package erruser

import "errors"

// Err holds a user-facing message, an optional remediation hint and an
// optional cause for debugging. Error() returns only Msg so the primary line
// never contains command names or exit codes.
type Err struct {
	Msg  string
	Hint string
	Err  error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying error for Details or logging.
// Handles nil receiver (method call on nil *Err is valid in Go).
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error with the given user-facing message. If err is non-nil,
// it is wrapped and available via Unwrap() so callers can print "Details: %v".
// If err is nil, returns a simple error with just msg (no Unwrap).
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}

// WithHint is New plus a remediation hint printed after the message.
func WithHint(msg, hint string, err error) error {
	return &Err{Msg: msg, Hint: hint, Err: err}
}

// HintOf returns the first non-empty hint found in err's chain, or "".
func HintOf(err error) string {
	for err != nil {
		if e, ok := err.(*Err); ok && e != nil && e.Hint != "" {
			return e.Hint
		}
		if h, ok := err.(interface{ Hint() string }); ok {
			if s := h.Hint(); s != "" {
				return s
			}
		}
		err = errors.Unwrap(err)
	}
	return ""
}
