package git

import (
	"errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CurrentBranch returns the short name of the branch HEAD points at, read
// without a subprocess. A detached HEAD returns "". A branch with no commits
// yet still returns its name.
func CurrentBranch(repoRoot string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(repoRoot, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", notRepository("This directory is not inside a Git repository.", err)
		}
		return "", notRepository("Could not open the repository.", err)
	}
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", notRepository("Could not read HEAD.", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	return "", nil
}
