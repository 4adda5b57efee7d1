package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"gitmsg/cli/internal/erruser"
	"gitmsg/cli/internal/git"
	"gitmsg/cli/internal/learning"
)

func (a *app) newLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record the last commit message as the final version of the pending suggestion",
		Long: `Record the last commit message as the final version of the pending suggestion.

Run it after committing (for example from a post-commit hook). When the
committed text differs from what gitmsg generated, the pair is later shown
to the model as an example of your edits. Requires learning_enabled.`,
		Args: cobra.NoArgs,
		RunE: a.runLearn,
	}
	return cmd
}

func (a *app) runLearn(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := a.loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()
	if !s.cfg.Bool("learning_enabled") {
		fmt.Fprintln(a.stderr, "Learning is disabled. Enable it with: gitmsg config set learning_enabled true")
		return nil
	}
	cwd, err := a.getwd()
	if err != nil {
		return erruser.New("Could not determine current directory.", err)
	}
	root, err := git.RepoRoot(ctx, cwd)
	if err != nil {
		return err
	}
	message, err := git.LastCommitMessage(ctx, root)
	if err != nil {
		return err
	}
	if message == "" {
		fmt.Fprintln(a.stderr, "No commits yet; nothing to learn.")
		return nil
	}
	store := learning.Open(filepath.Dir(s.path), s.log)
	rec, ok, err := store.RecordFinal(root, message)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.stderr, "No pending generated message for this repository.")
		return nil
	}
	if rec.Final == rec.Generated {
		fmt.Fprintln(a.stdout, "Recorded: message committed unchanged.")
		return nil
	}
	fmt.Fprintln(a.stdout, "Recorded: edited message saved as an example.")
	return nil
}
