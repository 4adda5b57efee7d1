// Package git reads the repository state the commit message pipeline needs:
// repository root, staged diff, recent history, current branch and the
// repository instructions file. Subprocess calls use exec git with a minimal
// environment; branch detection reads HEAD through go-git.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"gitmsg/cli/internal/erruser"
)

// Timeouts for git subprocesses. Metadata queries are quick; diff and log
// extraction can take longer on big repositories.
const (
	ShortTimeout = 5 * time.Second
	LongTimeout  = 30 * time.Second
)

// ErrNotRepository means the directory is not inside a git repository, git is
// not installed, or a git command failed or timed out.
var ErrNotRepository = errors.New("not a git repository")

// ErrNoStagedChanges means the index has no changes relative to HEAD.
var ErrNoStagedChanges = errors.New("no staged changes")

const notRepoHint = "Run gitmsg from inside a git repository."

// errTimeout marks a git subprocess killed by its own deadline.
var errTimeout = errors.New("git command timed out")

// notRepository wraps cause so that errors.Is(err, ErrNotRepository) holds
// and Error() stays a plain user message.
func notRepository(msg string, cause error) error {
	return &erruser.Err{Msg: msg, Hint: notRepoHint, Err: errors.Join(ErrNotRepository, cause)}
}

// run executes git with args in dir, bounded by timeout, and returns stdout.
// Cancellation of ctx is returned as ctx.Err(); the subprocess deadline as
// errTimeout. Non-zero exits include trimmed stderr.
func run(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("git %s: %w", args[0], errTimeout)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return "", fmt.Errorf("git %s: %w", args[0], err)
}

// wrapRunErr turns a run error into ErrNotRepository unless it is a caller
// cancellation, which is passed through untouched.
func wrapRunErr(what string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return notRepository("Git is not installed or not on PATH.", err)
	case errors.Is(err, errTimeout):
		return notRepository("Git "+what+" timed out.", err)
	}
	return notRepository("Could not "+what+".", err)
}

func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
		"LC_ALL=C",
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}
