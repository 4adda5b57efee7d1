package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitmsg/cli/internal/format"
)

func bufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	r, err := Resolve(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := r.Int("history_depth"); got != 5 {
		t.Errorf("history_depth = %d, want 5", got)
	}
	if got := r.Int("timeout"); got != 30 {
		t.Errorf("timeout = %d, want 30", got)
	}
	if got := r.Float("temperature"); got != 0.7 {
		t.Errorf("temperature = %v, want 0.7", got)
	}
	if got := r.Int("max_diff_bytes"); got != 20000 {
		t.Errorf("max_diff_bytes = %d, want 20000", got)
	}
	if r.Format() != format.Freeform {
		t.Errorf("format = %v, want freeform", r.Format())
	}
	if r.Get("model") != nil || r.Get("provider") != nil || r.Get("log_file") != nil {
		t.Error("nullable keys should default to nil")
	}
	if _, ok := r.OptionalInt("max_chars"); ok {
		t.Error("max_chars should be unset by default")
	}
	if r.Bool("include_branch") || r.Bool("learning_enabled") || r.Bool("copy_to_clipboard") {
		t.Error("booleans should default to false")
	}
	m := r.Map()
	for _, k := range Keys() {
		if _, ok := m[k]; !ok {
			t.Errorf("resolved map missing key %q", k)
		}
		if r.Source(k) != SourceDefault {
			t.Errorf("Source(%q) = %v, want default", k, r.Source(k))
		}
	}
}

func TestResolve_precedence(t *testing.T) {
	t.Parallel()
	cli := Layer{"history_depth": 9}
	env := Layer{"history_depth": 7}
	file := Layer{"history_depth": int64(3)}
	tests := []struct {
		name          string
		cli, env, fil Layer
		want          int
		wantSrc       Source
	}{
		{"all", cli, env, file, 9, SourceCLI},
		{"no_cli", nil, env, file, 7, SourceEnv},
		{"file_only", nil, nil, file, 3, SourceFile},
		{"defaults", nil, nil, nil, 5, SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := Resolve(tt.cli, tt.fil, tt.env, nil)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got := r.Int("history_depth"); got != tt.want {
				t.Errorf("history_depth = %d, want %d", got, tt.want)
			}
			if r.Source("history_depth") != tt.wantSrc {
				t.Errorf("source = %v, want %v", r.Source("history_depth"), tt.wantSrc)
			}
		})
	}
}

func TestResolve_nilNeverOverwrites(t *testing.T) {
	t.Parallel()
	r, err := Resolve(Layer{"model": nil}, Layer{"model": "from-file"}, Layer{"model": nil}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := r.String("model"); got != "from-file" {
		t.Errorf("model = %q, want from-file", got)
	}
}

func TestResolve_envBeatsFile(t *testing.T) {
	t.Parallel()
	r, err := Resolve(nil, Layer{"format": "gitmoji"}, Layer{"format": "conventional"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Format() != format.Conventional {
		t.Errorf("format = %v, want conventional", r.Format())
	}
}

func TestResolve_unknownKeysDroppedWithWarning(t *testing.T) {
	t.Parallel()
	log, buf := bufLogger()
	r, err := Resolve(nil, Layer{"colour": "blue", "history_depth": int64(2)}, nil, log)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := r.Map()["colour"]; ok {
		t.Error("unknown key should be dropped")
	}
	if r.Int("history_depth") != 2 {
		t.Errorf("history_depth = %d, want 2", r.Int("history_depth"))
	}
	if !strings.Contains(buf.String(), "key=colour") || !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected warning naming the key, got %q", buf.String())
	}
}

func TestResolve_doesNotMutateInputs(t *testing.T) {
	t.Parallel()
	file := Layer{"timeout": int64(60), "bogus": 1}
	env := Layer{"temperature": 1}
	_, err := Resolve(nil, file, env, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(file) != 2 || file["timeout"] != int64(60) || file["bogus"] != 1 {
		t.Errorf("file layer mutated: %v", file)
	}
	if env["temperature"] != 1 {
		t.Errorf("env layer mutated: %v", env)
	}
}

func TestResolve_intToFloat(t *testing.T) {
	t.Parallel()
	r, err := Resolve(nil, Layer{"temperature": int64(1)}, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Float("temperature") != 1.0 {
		t.Errorf("temperature = %v, want 1.0", r.Float("temperature"))
	}
}

func TestResolve_validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		layer    Layer
		key      string
		contains []string
	}{
		{"history_depth_high", Layer{"history_depth": 51}, "history_depth", []string{"0", "50", "51"}},
		{"history_depth_negative", Layer{"history_depth": -1}, "history_depth", []string{"0", "50"}},
		{"timeout_low", Layer{"timeout": 4}, "timeout", []string{"5", "300"}},
		{"temperature_high", Layer{"temperature": 2.5}, "temperature", []string{"0.0", "2.0"}},
		{"max_tokens_zero", Layer{"max_tokens": 0}, "max_tokens", []string{"1", "100000"}},
		{"max_diff_bytes_low", Layer{"max_diff_bytes": 999}, "max_diff_bytes", []string{"1000", "10000000"}},
		{"max_message_length", Layer{"max_message_length": 9}, "max_message_length", []string{"10", "10000"}},
		{"branch_max_length", Layer{"branch_max_length": 201}, "branch_max_length", []string{"20", "200"}},
		{"chars_per_token", Layer{"chars_per_token": 11}, "chars_per_token", []string{"1", "10"}},
		{"max_chars", Layer{"max_chars": 0}, "max_chars", []string{"1", "10000"}},
		{"format", Layer{"format": "emoji"}, "format", []string{"freeform", "conventional", "gitmoji"}},
		{"provider", Layer{"provider": "bedrock"}, "provider", []string{"openai", "ollama"}},
		{"bool_type", Layer{"include_branch": "yes"}, "include_branch", []string{"boolean"}},
		{"int_type", Layer{"timeout": "30"}, "timeout", []string{"integer"}},
		{"model_type", Layer{"model": int64(4)}, "model", []string{"string or null"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(nil, tt.layer, nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if cfgErr.Key != tt.key {
				t.Errorf("Key = %q, want %q", cfgErr.Key, tt.key)
			}
			for _, sub := range tt.contains {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error %q should contain %q", err.Error(), sub)
				}
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name the key", err.Error())
			}
		})
	}
}

func TestResolve_validBoundaries(t *testing.T) {
	t.Parallel()
	layer := Layer{
		"history_depth":      0,
		"timeout":            300,
		"temperature":        0.0,
		"max_tokens":         100000,
		"max_diff_bytes":     10_000_000,
		"max_message_length": 10,
		"branch_max_length":  20,
		"chars_per_token":    10,
		"max_chars":          1,
		"provider":           "ollama",
		"format":             "gitmoji",
	}
	r, err := Resolve(layer, nil, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n, ok := r.OptionalInt("max_chars"); !ok || n != 1 {
		t.Errorf("max_chars = %d, %v", n, ok)
	}
	if r.String("provider") != "ollama" {
		t.Errorf("provider = %q", r.String("provider"))
	}
}

func TestEnvLayer(t *testing.T) {
	t.Parallel()
	log, buf := bufLogger()
	env := []string{
		"PATH=/usr/bin",
		"GITMSG_MODEL=gpt-4o",
		"GITMSG_HISTORY_DEPTH=8",
		"GITMSG_TEMPERATURE=0.3",
		"GITMSG_INCLUDE_BRANCH=YES",
		"GITMSG_COPY_TO_CLIPBOARD=nope",
		"GITMSG_TIMEOUT=soon",
		"GITMSG_MAX_TOKENS=1.5",
		"GITMSG_FORMAT=",
		"GITMSG_LEARNING=1",
	}
	layer := EnvLayer(env, log)
	if layer["model"] != "gpt-4o" {
		t.Errorf("model = %v", layer["model"])
	}
	if layer["history_depth"] != 8 {
		t.Errorf("history_depth = %v", layer["history_depth"])
	}
	if layer["temperature"] != 0.3 {
		t.Errorf("temperature = %v", layer["temperature"])
	}
	if layer["include_branch"] != true {
		t.Errorf("include_branch = %v, want true", layer["include_branch"])
	}
	if layer["copy_to_clipboard"] != false {
		t.Errorf("copy_to_clipboard = %v, want false", layer["copy_to_clipboard"])
	}
	if layer["learning_enabled"] != true {
		t.Errorf("GITMSG_LEARNING alias not applied: %v", layer["learning_enabled"])
	}
	for _, k := range []string{"timeout", "max_tokens", "format"} {
		if _, ok := layer[k]; ok {
			t.Errorf("%s should be skipped, got %v", k, layer[k])
		}
	}
	out := buf.String()
	if !strings.Contains(out, "GITMSG_TIMEOUT") || !strings.Contains(out, "GITMSG_MAX_TOKENS") {
		t.Errorf("expected warnings for malformed numerics, got %q", out)
	}
}

func TestEnvLayer_longFormBeatsAlias(t *testing.T) {
	t.Parallel()
	layer := EnvLayer([]string{"GITMSG_COPY=1", "GITMSG_COPY_TO_CLIPBOARD=0"}, nil)
	if layer["copy_to_clipboard"] != false {
		t.Errorf("copy_to_clipboard = %v, want false", layer["copy_to_clipboard"])
	}
}

func TestEnvLayer_malformedFallsThroughToFile(t *testing.T) {
	t.Parallel()
	env := EnvLayer([]string{"GITMSG_HISTORY_DEPTH=lots"}, nil)
	r, err := Resolve(nil, Layer{"history_depth": int64(3)}, env, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Int("history_depth") != 3 {
		t.Errorf("history_depth = %d, want 3 from file", r.Int("history_depth"))
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()
	if got := EnvName("max_diff_bytes"); got != "GITMSG_MAX_DIFF_BYTES" {
		t.Errorf("EnvName = %q", got)
	}
}

func TestDefaultPath_xdg(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if want := filepath.Join(dir, "gitmsg", "config.toml"); got != want {
		t.Errorf("DefaultPath = %q, want %q", got, want)
	}
}

func TestError_hint(t *testing.T) {
	t.Parallel()
	e := &Error{Key: "timeout", Msg: "timeout must be between 5 and 300, got 1"}
	if !strings.Contains(e.Hint(), "gitmsg config set timeout") {
		t.Errorf("Hint = %q", e.Hint())
	}
	wrapped := &Error{Msg: "invalid TOML syntax", Err: os.ErrInvalid}
	if !errors.Is(wrapped, os.ErrInvalid) {
		t.Error("Error should unwrap its cause")
	}
	if !strings.Contains(wrapped.Error(), "invalid TOML syntax") {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}
