package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gitmsg/cli/internal/commitmsg"
	"gitmsg/cli/internal/config"
	"gitmsg/cli/internal/erruser"
	"gitmsg/cli/internal/learning"
	"gitmsg/cli/internal/llm"
	"gitmsg/cli/internal/prompt"
	"gitmsg/cli/internal/tokens"
	"gitmsg/cli/internal/trace"
)

func (a *app) newMsgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msg",
		Short: "Generate a commit message from staged changes",
		Long: `Generate a commit message from staged changes.

The message is printed to stdout. Configuration comes from CLI flags,
GITMSG_* environment variables, the config file and built-in defaults,
in that order of precedence.`,
		Example: `  gitmsg msg
  gitmsg msg --hint "security fix"
  gitmsg msg --format conventional --max-chars 72
  gitmsg msg --dry-run`,
		Args: cobra.NoArgs,
		RunE: a.runMsg,
	}
	cmd.Flags().StringP("hint", "H", "", "Additional guidance for generation (e.g. 'emphasize security')")
	cmd.Flags().BoolP("copy", "c", false, "Copy the generated message to the clipboard")
	cmd.Flags().StringP("model", "m", "", "Model to use (e.g. gpt-4o-mini, claude-haiku-4-5)")
	cmd.Flags().StringP("format", "f", "", "Message format: freeform, conventional or gitmoji")
	cmd.Flags().Int("history-depth", 0, "Number of recent commits used as style reference (0-50)")
	cmd.Flags().String("provider", "", "Provider override: "+strings.Join(config.Providers, ", "))
	cmd.Flags().Int("max-chars", 0, "Maximum length of the generated message in characters")
	cmd.Flags().Bool("branch", false, "Include sanitized branch context in the prompt")
	cmd.Flags().Bool("dry-run", false, "Print the assembled prompt without calling the provider")
	cmd.Flags().Bool("trace", false, "Print internal steps to stderr (config, branch, truncation, prompts, raw reply)")
	return cmd
}

// msgFlags maps changed msg flags onto configuration keys. Flags the user did
// not pass never enter the CLI layer.
var msgFlags = []struct{ flag, key string }{
	{"copy", "copy_to_clipboard"},
	{"model", "model"},
	{"format", "format"},
	{"history-depth", "history_depth"},
	{"provider", "provider"},
	{"max-chars", "max_chars"},
	{"branch", "include_branch"},
}

func cliLayer(cmd *cobra.Command) config.Layer {
	layer := config.Layer{}
	for _, m := range msgFlags {
		f := cmd.Flags().Lookup(m.flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := cmd.Flags().GetBool(m.flag)
			layer[m.key] = v
		case "int":
			v, _ := cmd.Flags().GetInt(m.flag)
			layer[m.key] = v
		default:
			if v, _ := cmd.Flags().GetString(m.flag); strings.TrimSpace(v) != "" {
				layer[m.key] = strings.TrimSpace(v)
			}
		}
	}
	return layer
}

func (a *app) runMsg(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := a.loadSettings(cmd, cliLayer(cmd))
	if err != nil {
		return err
	}
	defer s.close()
	cfg := s.cfg

	var tr *trace.Tracer
	if on, _ := cmd.Flags().GetBool("trace"); on {
		tr = trace.New(a.stderr)
	}
	tr.Section("Configuration")
	for _, key := range config.Keys() {
		tr.Printf("%s = %s (%s)\n", key, config.FormatValue(cfg.Get(key)), cfg.Source(key))
	}

	cwd, err := a.getwd()
	if err != nil {
		return erruser.New("Could not determine current directory.", err)
	}
	g, err := commitmsg.Gather(ctx, cwd, commitmsg.GatherOptionsFrom(cfg), s.log, tr)
	if err != nil {
		return err
	}
	if g.Context.Diff.Truncated {
		fmt.Fprintln(a.stderr, "Warning: Large diff truncated to fit token limits.")
	}

	g.Context.Hint, _ = cmd.Flags().GetString("hint")
	g.Context.Hint = strings.TrimSpace(g.Context.Hint)
	var store *learning.Store
	if cfg.Bool("learning_enabled") {
		store = learning.Open(filepath.Dir(s.path), s.log)
		pairs, err := store.Examples(g.Root, prompt.MaxExamples)
		if err != nil {
			s.log.Warn("could not load learning examples", "error", err)
		}
		g.Context.Examples = commitmsg.ExamplesFrom(pairs)
	}

	params := commitmsg.ParamsFrom(cfg)
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		pair, err := commitmsg.BuildPrompt(g.Context, params)
		if err != nil {
			return err
		}
		writeDryRun(a.stdout, cfg.String("model"), params, g.Context.Diff.Truncated,
			tokens.Estimate(pair.System+pair.User, cfg.Int("chars_per_token")), pair)
		return nil
	}

	gen, err := llm.New(llm.Settings{
		Provider: cfg.String("provider"),
		Model:    cfg.String("model"),
		Timeout:  cfg.Int("timeout"),
		Getenv:   a.getenv,
		Log:      s.log,
	})
	if err != nil {
		return err
	}
	if pair, err := commitmsg.BuildPrompt(g.Context, params); err == nil {
		est := tokens.Estimate(pair.System+pair.User, cfg.Int("chars_per_token"))
		if w := tokens.WarnIfOver(est, params.MaxTokens, tokens.DefaultContextLimit, tokens.DefaultWarnThreshold); w != "" {
			fmt.Fprintf(a.stderr, "Warning: %s\n", w)
		}
	}
	res, err := commitmsg.Generate(ctx, gen, g.Context, params, s.log, tr)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, res.Message)

	if cfg.Bool("copy_to_clipboard") {
		if err := a.copy(res.Message); err != nil {
			fmt.Fprintf(a.stderr, "Warning: Could not copy to clipboard: %v\n", err)
		} else {
			fmt.Fprintln(a.stderr, "✓ Copied to clipboard")
		}
	}
	if store != nil {
		_, err := store.RecordGenerated(learning.Record{
			Repo:      g.Root,
			DiffHash:  g.Context.Diff.Hash,
			Format:    params.Format.String(),
			Model:     gen.Model,
			Generated: res.Message,
		})
		if err != nil {
			s.log.Warn("could not record generated message", "error", err)
		}
	}
	return nil
}

func writeDryRun(w io.Writer, model string, p commitmsg.Params, truncated bool, estimate int, pair prompt.Pair) {
	if model == "" {
		model = "none"
	}
	fmt.Fprintf(w, "MODEL: %s\n", model)
	fmt.Fprintf(w, "FORMAT: %s\n", p.Format)
	fmt.Fprintf(w, "TRUNCATED: %t\n", truncated)
	fmt.Fprintf(w, "ESTIMATED TOKENS: %d\n\n", estimate)
	fmt.Fprintf(w, "SYSTEM PROMPT:\n%s\n\n", pair.System)
	fmt.Fprintf(w, "USER PROMPT:\n%s\n", pair.User)
}
