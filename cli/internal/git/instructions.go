package git

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// InstructionsFile is read from the repository root.
const InstructionsFile = ".gitmsg"

// Instructions is repository-level guidance for commit messages.
type Instructions struct {
	Path    string
	Content string // trimmed; empty when the file is missing or unreadable
	Exists  bool
}

// LoadInstructions reads repoRoot/.gitmsg. A missing file is not an error;
// an unreadable one is logged and treated as missing. log may be nil.
func LoadInstructions(repoRoot string, log *slog.Logger) Instructions {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	path := filepath.Join(repoRoot, InstructionsFile)
	inst := Instructions{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("could not read repository instructions", "path", path, "error", err)
		}
		return inst
	}
	inst.Content = strings.TrimSpace(string(data))
	inst.Exists = true
	return inst
}
