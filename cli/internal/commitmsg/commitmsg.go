// Package commitmsg runs the commit message pipeline: gather context from the
// repository, build the prompt, call the generator and validate the reply.
package commitmsg

import (
	"context"
	"log/slog"
	"strings"

	"gitmsg/cli/internal/branch"
	"gitmsg/cli/internal/config"
	"gitmsg/cli/internal/diff"
	"gitmsg/cli/internal/format"
	"gitmsg/cli/internal/git"
	"gitmsg/cli/internal/learning"
	"gitmsg/cli/internal/llm"
	"gitmsg/cli/internal/prompt"
	"gitmsg/cli/internal/trace"
)

// GatherOptions bounds what Gather collects.
type GatherOptions struct {
	HistoryDepth    int
	MaxDiffBytes    int
	IncludeBranch   bool
	BranchMaxLength int
}

// GatherOptionsFrom reads the gather settings from resolved configuration.
func GatherOptionsFrom(r *config.Resolved) GatherOptions {
	return GatherOptions{
		HistoryDepth:    r.Int("history_depth"),
		MaxDiffBytes:    r.Int("max_diff_bytes"),
		IncludeBranch:   r.Bool("include_branch"),
		BranchMaxLength: r.Int("branch_max_length"),
	}
}

// Gathered is the repository state for one generation.
type Gathered struct {
	Root    string
	Context prompt.Context
	// FullSize is the staged diff size before truncation.
	FullSize int
}

// Gather collects staged diff, history, instructions and (optionally) the
// branch for the repository containing dir. The diff is truncated to
// opts.MaxDiffBytes. Default branches and detached HEADs yield no branch
// block. Repository and no-changes failures are returned unchanged.
func Gather(ctx context.Context, dir string, opts GatherOptions, log *slog.Logger, tr *trace.Tracer) (*Gathered, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	root, err := git.RepoRoot(ctx, dir)
	if err != nil {
		return nil, err
	}
	staged, err := git.StagedDiff(ctx, root)
	if err != nil {
		return nil, err
	}
	full := staged.SizeBytes
	if tr.Enabled() {
		tr.Section("Staged files")
		for _, fc := range diff.ParseFiles(staged.Raw) {
			if fc.Binary {
				tr.Printf("%s (binary)\n", fc.Path)
				continue
			}
			tr.Printf("%s +%d -%d\n", fc.Path, fc.Added, fc.Removed)
		}
	}
	if opts.MaxDiffBytes > 0 {
		staged = diff.Truncate(staged, opts.MaxDiffBytes)
	}
	log.Debug("staged diff", "files", len(staged.Files), "bytes", full, "truncated", staged.Truncated)
	tr.Section("Staged diff")
	tr.Printf("files=%d added=%d removed=%d bytes=%d truncated=%v (limit %d)\n",
		len(staged.Files), staged.LinesAdded, staged.LinesRemoved, full, staged.Truncated, opts.MaxDiffBytes)

	history, err := git.History(ctx, root, opts.HistoryDepth, log)
	if err != nil {
		return nil, err
	}
	log.Debug("commit history", "requested", opts.HistoryDepth, "found", len(history))

	c := prompt.Context{
		Diff:         staged,
		History:      history,
		Instructions: git.LoadInstructions(root, log),
	}
	if opts.IncludeBranch {
		c.Branch = currentBranch(root, opts.BranchMaxLength, log, tr)
	}
	return &Gathered{Root: root, Context: c, FullSize: full}, nil
}

func currentBranch(root string, maxLength int, log *slog.Logger, tr *trace.Tracer) *branch.Info {
	name, err := git.CurrentBranch(root)
	if err != nil {
		log.Warn("could not read current branch", "error", err)
		return nil
	}
	if name == "" {
		log.Debug("detached HEAD; branch context skipped")
		return nil
	}
	info := branch.Parse(name, maxLength)
	tr.Section("Branch")
	tr.Printf("raw=%q type=%q summary=%q default=%v\n", info.RawName, info.Type, info.Summary, info.IsDefault)
	if info.IsDefault {
		log.Debug("default branch; branch context skipped", "branch", name)
		return nil
	}
	return &info
}

// ExamplesFrom converts stored learning pairs into prompt examples.
func ExamplesFrom(pairs []learning.Pair) []prompt.Example {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]prompt.Example, len(pairs))
	for i, p := range pairs {
		out[i] = prompt.Example{Generated: p.Generated, Edited: p.Edited}
	}
	return out
}

// Params selects the output grammar and generation knobs.
type Params struct {
	Format           format.Format
	MaxChars         int // 0 = unset
	MaxMessageLength int
	Temperature      float64
	MaxTokens        int
}

// ParamsFrom reads generation parameters from resolved configuration.
func ParamsFrom(r *config.Resolved) Params {
	maxChars, _ := r.OptionalInt("max_chars")
	return Params{
		Format:           r.Format(),
		MaxChars:         maxChars,
		MaxMessageLength: r.Int("max_message_length"),
		Temperature:      r.Float("temperature"),
		MaxTokens:        r.Int("max_tokens"),
	}
}

// Result is a validated message and the prompt that produced it.
type Result struct {
	Message string
	Prompt  prompt.Pair
}

// BuildPrompt renders the prompt pair for c under p.
func BuildPrompt(c prompt.Context, p Params) (prompt.Pair, error) {
	return prompt.Build(c, p.Format, p.MaxChars)
}

// Generate builds the prompt, asks gen for a message and validates the
// trimmed reply against p.Format and EffectiveMaxLength. On a validation
// failure the Result still carries the rejected message.
func Generate(ctx context.Context, gen llm.Generator, c prompt.Context, p Params, log *slog.Logger, tr *trace.Tracer) (Result, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	pair, err := BuildPrompt(c, p)
	if err != nil {
		return Result{}, err
	}
	tr.Block("System prompt", pair.System)
	tr.Block("User prompt", pair.User)

	reply, err := gen.Generate(ctx, llm.Request{
		System:      pair.System,
		User:        pair.User,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return Result{Prompt: pair}, err
	}
	tr.Block("LLM reply", reply)
	msg := strings.TrimSpace(reply)
	res := Result{Message: msg, Prompt: pair}
	limit := EffectiveMaxLength(p.MaxChars, p.MaxMessageLength)
	if err := Validate(msg, p.Format, limit); err != nil {
		log.Debug("generated message rejected", "format", p.Format.String(), "limit", limit, "error", err)
		return res, err
	}
	return res, nil
}
