package git

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// RepoRoot returns the absolute path of the git repository root containing dir.
// Runs "git rev-parse --show-toplevel" with Dir=dir. Returns an error wrapping
// ErrNotRepository if dir is not inside a git repository.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, ShortTimeout, "rev-parse", "--show-toplevel")
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", notRepository("This directory is not inside a Git repository.", err)
	}
	return filepath.Abs(strings.TrimSpace(out))
}

// IsRepository reports whether dir is inside a git work tree.
func IsRepository(ctx context.Context, dir string) bool {
	out, err := run(ctx, dir, ShortTimeout, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// LastCommitMessage returns the full message of HEAD, trimmed. A repository
// without commits returns "".
func LastCommitMessage(ctx context.Context, repoRoot string) (string, error) {
	out, err := run(ctx, repoRoot, ShortTimeout, "log", "-1", "--format=%B", "HEAD")
	if err != nil {
		if isUnborn(err) {
			return "", nil
		}
		return "", wrapRunErr("read the last commit message", err)
	}
	return strings.TrimSpace(out), nil
}

// isUnborn reports whether err comes from a git command run before the first commit.
func isUnborn(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "does not have any commits yet") ||
		strings.Contains(msg, "unknown revision or path not in the working tree") ||
		strings.Contains(msg, "bad default revision")
}
