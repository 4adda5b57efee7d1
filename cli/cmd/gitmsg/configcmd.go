package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gitmsg/cli/internal/config"
	"gitmsg/cli/internal/erruser"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or change gitmsg configuration",
	}
	view := &cobra.Command{
		Use:   "view",
		Short: "Show the config file and every resolved setting with its source",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigView,
	}
	view.Flags().StringP("output", "o", "human", "Output format: human, json or yaml")
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key in the global config file ('none' clears nullable keys)",
		Example: `  gitmsg config set model gpt-4o-mini
  gitmsg config set format conventional
  gitmsg config set max_chars none`,
		Args: cobra.ExactArgs(2),
		RunE: a.runConfigSet,
	}
	cmd.AddCommand(view, set)
	return cmd
}

// settingRow is one resolved setting as printed by config view.
type settingRow struct {
	Key    string `json:"key" yaml:"key"`
	Value  any    `json:"value" yaml:"value"`
	Source string `json:"source" yaml:"source"`
	// Shadowed is set when an environment variable hides a value from the file.
	Shadowed bool `json:"overrides_file,omitempty" yaml:"overrides_file,omitempty"`
}

func (a *app) runConfigView(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "human", "json", "yaml":
	default:
		return erruser.New(fmt.Sprintf("Unknown output format %q. Use human, json or yaml.", output), nil)
	}
	s, err := a.loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	rows := make([]settingRow, 0, len(config.Keys()))
	for _, key := range config.Keys() {
		row := settingRow{Key: key, Value: s.cfg.Get(key), Source: s.cfg.Source(key).String()}
		if s.cfg.Source(key) == config.SourceEnv {
			row.Source = fmt.Sprintf("env (%s)", config.EnvName(key))
			_, row.Shadowed = s.file[key]
		}
		rows = append(rows, row)
	}

	switch output {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	}
	return writeConfigHuman(a.stdout, s.path, rows)
}

func writeConfigHuman(w io.Writer, path string, rows []settingRow) error {
	fmt.Fprintf(w, "Global config file: %s\n\n", path)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintln(w, "No global configuration file found.")
		fmt.Fprintln(w, "Create one with: gitmsg config set <key> <value>")
	case err != nil:
		fmt.Fprintf(w, "Could not read config file: %v\n", err)
	default:
		fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved configuration:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	for _, r := range rows {
		src := r.Source
		if r.Shadowed {
			src += "  ⚠ overrides file"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key, config.FormatValue(r.Value), src)
	}
	return tw.Flush()
}

func (a *app) runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	value, err := config.ParseValue(key, raw)
	if err != nil {
		return err
	}
	path, err := a.configPath(cmd)
	if err != nil {
		return err
	}
	if err := config.UpdateKey(path, key, value); err != nil {
		return err
	}
	if value == nil {
		fmt.Fprintf(a.stdout, "Cleared '%s' in %s\n", key, path)
		return nil
	}
	fmt.Fprintf(a.stdout, "Set '%s' to '%v' in %s\n", key, value, path)
	return nil
}
