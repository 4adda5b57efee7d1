// Package format defines the closed set of commit message formats. A format
// selects both the prompt's task description and the validation grammar.
package format

import (
	"fmt"
	"strings"
)

// Format is one of the supported commit message grammars. The zero value is
// not a valid format; use Parse or one of the constants.
type Format int

const (
	Freeform Format = iota + 1
	Conventional
	Gitmoji
)

var names = map[Format]string{
	Freeform:     "freeform",
	Conventional: "conventional",
	Gitmoji:      "gitmoji",
}

// All returns every format in declaration order.
func All() []Format {
	return []Format{Freeform, Conventional, Gitmoji}
}

// Names returns the lowercase names of all formats in declaration order.
func Names() []string {
	out := make([]string, 0, len(names))
	for _, f := range All() {
		out = append(out, f.String())
	}
	return out
}

// Parse returns the format named s. Matching is exact (lowercase); callers
// that accept user input should normalize first.
func Parse(s string) (Format, error) {
	for f, n := range names {
		if n == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q: must be one of %s", s, strings.Join(Names(), ", "))
}

// Valid reports whether f is one of the declared formats.
func (f Format) Valid() bool {
	_, ok := names[f]
	return ok
}

// String returns the lowercase name, or "format(N)" for invalid values.
func (f Format) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}
