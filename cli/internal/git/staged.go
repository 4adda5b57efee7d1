package git

import (
	"context"
	"errors"
	"strings"

	"gitmsg/cli/internal/diff"
	"gitmsg/cli/internal/erruser"
)

// StagedDiff returns the staged changes of the repository at repoRoot as a
// diff.Staged. Returns an error wrapping ErrNoStagedChanges when nothing is
// staged and ErrNotRepository when git fails.
func StagedDiff(ctx context.Context, repoRoot string) (diff.Staged, error) {
	raw, err := run(ctx, repoRoot, LongTimeout, "diff", "--cached", "--no-color", "--no-ext-diff")
	if err != nil {
		return diff.Staged{}, wrapRunErr("read the staged diff", err)
	}
	if strings.TrimSpace(raw) == "" {
		return diff.Staged{}, &erruser.Err{
			Msg:  "No staged changes found.",
			Hint: "Stage your changes first:\n  git add <files>",
			Err:  ErrNoStagedChanges,
		}
	}

	// A failing --name-only is not fatal; NewStaged parses the headers instead.
	var files []string
	names, err := run(ctx, repoRoot, ShortTimeout, "diff", "--cached", "--name-only")
	switch {
	case err == nil:
		files = []string{}
		for _, f := range strings.Split(strings.TrimSpace(names), "\n") {
			if f != "" {
				files = append(files, f)
			}
		}
	case errors.Is(err, context.Canceled):
		return diff.Staged{}, err
	}
	return diff.NewStaged(raw, files), nil
}
