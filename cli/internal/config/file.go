package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	appDir   = "gitmsg"
	fileName = "config.toml"
)

// DefaultPath returns $XDG_CONFIG_HOME/gitmsg/config.toml when XDG_CONFIG_HOME
// is set, otherwise os.UserConfigDir()/gitmsg/config.toml.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return PathIn(xdg), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", &Error{Msg: "could not determine config directory", Err: err}
	}
	return PathIn(dir), nil
}

// PathIn returns the config file path under a base config directory.
func PathIn(base string) string {
	return filepath.Join(base, appDir, fileName)
}

// LoadFile reads the top-level keys of the TOML file at path. A missing file
// yields an empty layer. Tables are unrelated sections and are skipped;
// unknown top-level keys are returned so Resolve can warn about them.
func LoadFile(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Layer{}, nil
		}
		return nil, &Error{Msg: fmt.Sprintf("could not read configuration file %s", path), Err: err}
	}
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("invalid TOML syntax in %s", path), Err: err}
	}
	layer := make(Layer, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []map[string]any:
			continue
		}
		layer[k] = v
	}
	return layer, nil
}

// ParseValue converts a command-line string into the typed value for key and
// validates it. "none" or "null" clears a nullable key (returns nil).
func ParseValue(key, raw string) (any, error) {
	s, ok := byKey[key]
	if !ok {
		return nil, &Error{Key: key, Msg: fmt.Sprintf("unknown configuration key %q (known keys: %s)", key, strings.Join(Keys(), ", "))}
	}
	raw = strings.TrimSpace(raw)
	if s.nullable {
		switch strings.ToLower(raw) {
		case "none", "null":
			return nil, nil
		}
	}
	var v any
	switch s.kind {
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &Error{Key: key, Msg: fmt.Sprintf("%s must be an integer, got %q", key, raw)}
		}
		v = n
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &Error{Key: key, Msg: fmt.Sprintf("%s must be a number, got %q", key, raw)}
		}
		v = f
	case kindBool:
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			v = true
		case "0", "false", "no", "off":
			v = false
		default:
			return nil, &Error{Key: key, Msg: fmt.Sprintf("%s must be a boolean (true/false), got %q", key, raw)}
		}
	default:
		v = raw
	}
	if err := s.check(v); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateKey sets key to value in the TOML file at path, creating the file
// and its directory when needed. A nil value removes the key. Only the one
// top-level line is touched; comments, other keys and [sections] are kept
// byte for byte. The file is replaced atomically.
func UpdateKey(path, key string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Msg: fmt.Sprintf("could not read configuration file %s", path), Err: err}
	}
	var newLine string
	if value != nil {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(map[string]any{key: value}); err != nil {
			return &Error{Key: key, Msg: fmt.Sprintf("could not encode %s", key), Err: err}
		}
		newLine = strings.TrimRight(buf.String(), "\n")
	}
	out := replaceTopLevelKey(string(data), key, newLine)
	return writeAtomic(path, []byte(out))
}

// replaceTopLevelKey rewrites content so that key's top-level assignment is
// line, or removed when line is empty.
func replaceTopLevelKey(content, key, line string) string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	firstTable := len(lines)
	found := -1
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "[") {
			firstTable = i
			break
		}
		if found < 0 && assignsKey(t, key) {
			found = i
		}
	}

	switch {
	case found >= 0 && line == "":
		lines = append(lines[:found], lines[found+1:]...)
	case found >= 0:
		lines[found] = line
	case line == "":
	default:
		at := firstTable
		for at > 0 && strings.TrimSpace(lines[at-1]) == "" && at < len(lines) {
			at--
		}
		insert := []string{line}
		if at < len(lines) && at == firstTable {
			insert = append(insert, "")
		}
		lines = append(lines[:at], append(insert, lines[at:]...)...)
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func assignsKey(trimmed, key string) bool {
	for _, k := range []string{key, strconv.Quote(key)} {
		rest, ok := strings.CutPrefix(trimmed, k)
		if ok && strings.HasPrefix(strings.TrimSpace(rest), "=") {
			return true
		}
	}
	return false
}

// writeAtomic writes data to a temp file in path's directory, syncs it and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Msg: "could not create config directory", Err: err}
	}
	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	f, err := os.CreateTemp(dir, "config.*.tmp")
	if err != nil {
		return &Error{Msg: "could not save configuration", Err: err}
	}
	tmpPath := f.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &Error{Msg: "could not save configuration", Err: err}
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return &Error{Msg: "could not save configuration", Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &Error{Msg: "could not save configuration", Err: err}
	}
	if err := f.Close(); err != nil {
		return &Error{Msg: "could not save configuration", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &Error{Msg: "could not save configuration", Err: err}
	}
	return nil
}

// FormatValue renders a resolved value for display; nil is "null".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
