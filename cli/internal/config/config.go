// Package config resolves gitmsg settings from four sources with a fixed
// precedence: CLI flags > environment variables > config file > defaults.
//
// Every source is a flat Layer of key → value. Resolve starts from the
// default mapping and overlays file, environment and CLI in that order; a
// key absent from a layer (or present with a nil value) never overwrites a
// lower layer. The merged mapping is validated against one table that lists
// every known key with its type and range.
//
// Paths:
//   - File: $XDG_CONFIG_HOME/gitmsg/config.toml, falling back to
//     os.UserConfigDir()/gitmsg/config.toml (see DefaultPath).
//
// Environment variables: GITMSG_<KEY> for every key (e.g. GITMSG_MODEL,
// GITMSG_HISTORY_DEPTH), plus GITMSG_COPY and GITMSG_LEARNING as short forms
// of copy_to_clipboard and learning_enabled.
package config

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"gitmsg/cli/internal/format"
)

// Layer is one source of settings. Values are int, int64, float64, bool,
// string or nil; nil means "not set here".
type Layer map[string]any

// Source names the layer that supplied a resolved value.
type Source int

const (
	SourceDefault Source = iota
	SourceFile
	SourceEnv
	SourceCLI
)

func (s Source) String() string {
	switch s {
	case SourceFile:
		return "config file"
	case SourceEnv:
		return "env"
	case SourceCLI:
		return "cli"
	default:
		return "default"
	}
}

// Providers is the closed set of generation backends accepted for "provider".
var Providers = []string{"openai", "anthropic", "cohere", "azure", "gemini", "huggingface", "ollama"}

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindBool
	kindString
	kindEnum
)

// setting is one row of the validation table.
type setting struct {
	key      string
	kind     kind
	def      any
	nullable bool
	min, max float64
	choices  []string
}

// table lists every known key in display order.
var table = []setting{
	{key: "model", kind: kindString, nullable: true},
	{key: "provider", kind: kindEnum, nullable: true, choices: Providers},
	{key: "format", kind: kindEnum, def: format.Freeform.String(), choices: format.Names()},
	{key: "history_depth", kind: kindInt, def: 5, min: 0, max: 50},
	{key: "timeout", kind: kindInt, def: 30, min: 5, max: 300},
	{key: "temperature", kind: kindFloat, def: 0.7, min: 0, max: 2},
	{key: "max_tokens", kind: kindInt, def: 500, min: 1, max: 100000},
	{key: "max_diff_bytes", kind: kindInt, def: 20000, min: 1000, max: 10_000_000},
	{key: "max_message_length", kind: kindInt, def: 1000, min: 10, max: 10000},
	{key: "branch_max_length", kind: kindInt, def: 60, min: 20, max: 200},
	{key: "chars_per_token", kind: kindInt, def: 4, min: 1, max: 10},
	{key: "max_chars", kind: kindInt, nullable: true, min: 1, max: 10000},
	{key: "copy_to_clipboard", kind: kindBool, def: false},
	{key: "learning_enabled", kind: kindBool, def: false},
	{key: "include_branch", kind: kindBool, def: false},
	{key: "log_file", kind: kindString, nullable: true},
}

var byKey = func() map[string]setting {
	m := make(map[string]setting, len(table))
	for _, s := range table {
		m[s.key] = s
	}
	return m
}()

// Keys returns every known key in display order.
func Keys() []string {
	keys := make([]string, len(table))
	for i, s := range table {
		keys[i] = s.key
	}
	return keys
}

// Known reports whether key is in the default set.
func Known(key string) bool {
	_, ok := byKey[key]
	return ok
}

// Defaults returns a fresh copy of the built-in default mapping. Nullable
// keys without a default map to nil.
func Defaults() Layer {
	l := make(Layer, len(table))
	for _, s := range table {
		l[s.key] = s.def
	}
	return l
}

// Resolved is the immutable result of Resolve. Every known key is present.
type Resolved struct {
	values  map[string]any
	sources map[string]Source
}

// Resolve merges defaults, file, env and cli (in that order, later wins),
// drops unknown keys with a warning and validates the result. Inputs are not
// modified. log may be nil.
func Resolve(cli, file, env Layer, log *slog.Logger) (*Resolved, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := &Resolved{
		values:  map[string]any(Defaults()),
		sources: make(map[string]Source, len(table)),
	}
	for _, s := range table {
		r.sources[s.key] = SourceDefault
	}
	overlays := []struct {
		src   Source
		layer Layer
	}{
		{SourceFile, file},
		{SourceEnv, env},
		{SourceCLI, cli},
	}
	for _, o := range overlays {
		for _, key := range slices.Sorted(maps.Keys(o.layer)) {
			v := o.layer[key]
			s, ok := byKey[key]
			if !ok {
				log.Warn("ignoring unknown configuration key", "key", key, "source", o.src.String())
				continue
			}
			if v == nil {
				continue
			}
			norm, err := s.coerce(v)
			if err != nil {
				return nil, err
			}
			r.values[key] = norm
			r.sources[key] = o.src
		}
	}
	for _, s := range table {
		if err := s.check(r.values[s.key]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// coerce converts v to the canonical Go type for s: int, float64, bool or string.
func (s setting) coerce(v any) (any, error) {
	switch s.kind {
	case kindInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			if n < math.MinInt || n > math.MaxInt {
				return nil, s.rangeError(n)
			}
			return int(n), nil
		}
		return nil, &Error{Key: s.key, Msg: fmt.Sprintf("%s must be an integer, got %T", s.key, v)}
	case kindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, &Error{Key: s.key, Msg: fmt.Sprintf("%s must be a number, got %T", s.key, v)}
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, &Error{Key: s.key, Msg: fmt.Sprintf("%s must be a boolean, got %T", s.key, v)}
	default:
		if str, ok := v.(string); ok {
			return str, nil
		}
		want := "a string"
		if s.nullable {
			want = "a string or null"
		}
		return nil, &Error{Key: s.key, Msg: fmt.Sprintf("%s must be %s, got %T", s.key, want, v)}
	}
}

// check validates a coerced value against the table row.
func (s setting) check(v any) error {
	if v == nil {
		if s.nullable {
			return nil
		}
		return &Error{Key: s.key, Msg: fmt.Sprintf("%s must be set", s.key)}
	}
	switch s.kind {
	case kindInt:
		if n := v.(int); float64(n) < s.min || float64(n) > s.max {
			return s.rangeError(n)
		}
	case kindFloat:
		if f := v.(float64); f < s.min || f > s.max || math.IsNaN(f) {
			return &Error{Key: s.key, Msg: fmt.Sprintf("%s must be between %.1f and %.1f, got %v", s.key, s.min, s.max, f)}
		}
	case kindEnum:
		if str := v.(string); !slices.Contains(s.choices, str) {
			return &Error{Key: s.key, Msg: fmt.Sprintf("%s must be one of %s, got %q", s.key, strings.Join(s.choices, ", "), str)}
		}
	}
	return nil
}

func (s setting) rangeError(got any) error {
	return &Error{Key: s.key, Msg: fmt.Sprintf("%s must be between %d and %d, got %v", s.key, int64(s.min), int64(s.max), got)}
}

// Get returns the resolved value for key (nil for unset nullable keys or unknown keys).
func (r *Resolved) Get(key string) any {
	return r.values[key]
}

// Source reports which layer supplied key.
func (r *Resolved) Source(key string) Source {
	return r.sources[key]
}

// Int returns an integer setting; 0 when unset.
func (r *Resolved) Int(key string) int {
	n, _ := r.values[key].(int)
	return n
}

// OptionalInt returns an integer setting and whether it is set.
func (r *Resolved) OptionalInt(key string) (int, bool) {
	n, ok := r.values[key].(int)
	return n, ok
}

// Float returns a float setting.
func (r *Resolved) Float(key string) float64 {
	f, _ := r.values[key].(float64)
	return f
}

// Bool returns a boolean setting.
func (r *Resolved) Bool(key string) bool {
	b, _ := r.values[key].(bool)
	return b
}

// String returns a string setting; "" when unset.
func (r *Resolved) String(key string) string {
	s, _ := r.values[key].(string)
	return s
}

// Format returns the resolved output format. The value was validated by Resolve.
func (r *Resolved) Format() format.Format {
	f, _ := format.Parse(r.String("format"))
	return f
}

// Map returns a copy of all resolved values.
func (r *Resolved) Map() map[string]any {
	return maps.Clone(r.values)
}
