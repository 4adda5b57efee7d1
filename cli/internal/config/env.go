package config

import (
	"log/slog"
	"strconv"
	"strings"
)

// EnvPrefix is prepended to the uppercased key to form the variable name.
const EnvPrefix = "GITMSG_"

// envAliases maps short variable names onto keys. The long form wins when both are set.
var envAliases = map[string]string{
	"GITMSG_COPY":     "copy_to_clipboard",
	"GITMSG_LEARNING": "learning_enabled",
}

// EnvName returns the environment variable for key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// EnvLayer reads GITMSG_* variables from environ (os.Environ() format).
// Empty variables are treated as unset. Booleans are true for 1, true or yes
// (any case) and false otherwise. Numeric variables that do not parse are
// logged and skipped so lower layers still apply. log may be nil.
func EnvLayer(environ []string, log *slog.Logger) Layer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		vars[name] = value
	}

	layer := make(Layer)
	for alias, key := range envAliases {
		if raw := vars[alias]; raw != "" {
			layer[key] = parseBoolEnv(raw)
		}
	}
	for _, s := range table {
		name := EnvName(s.key)
		raw := strings.TrimSpace(vars[name])
		if raw == "" {
			continue
		}
		switch s.kind {
		case kindBool:
			layer[s.key] = parseBoolEnv(raw)
		case kindInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				log.Warn("ignoring malformed environment variable", "name", name, "value", raw, "want", "integer")
				continue
			}
			layer[s.key] = n
		case kindFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				log.Warn("ignoring malformed environment variable", "name", name, "value", raw, "want", "number")
				continue
			}
			layer[s.key] = f
		default:
			layer[s.key] = raw
		}
	}
	return layer
}

func parseBoolEnv(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
