package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gitmsg/cli/internal/llm"
	"gitmsg/cli/internal/version"
)

func (a *app) newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show version, configuration path and provider detection",
		Args:  cobra.NoArgs,
		RunE:  a.runInfo,
	}
	cmd.Flags().Bool("check", false, "Contact the Ollama server and verify the model is pulled (ollama only)")
	return cmd
}

func (a *app) runInfo(cmd *cobra.Command, _ []string) error {
	s, err := a.loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()
	w := a.stdout
	model := s.cfg.String("model")
	configured := s.cfg.String("provider")

	fmt.Fprintf(w, "gitmsg %s\n", version.String())
	fmt.Fprintf(w, "Config file: %s\n", s.path)
	fmt.Fprintf(w, "Configured model: %s\n", orNone(model))
	fmt.Fprintf(w, "Configured provider: %s\n", orNone(configured))

	provider := configured
	if provider == "" {
		provider, err = llm.DetectProvider(a.getenv, model)
		if err != nil {
			fmt.Fprintln(w, "Detected provider: none")
		} else {
			fmt.Fprintf(w, "Detected provider: %s\n", provider)
		}
	}
	effective := "none"
	if provider != "" {
		if m, err := llm.ResolveModel(provider, model); err == nil {
			effective = m
		}
	}
	fmt.Fprintf(w, "Effective model: %s\n", effective)

	var set []string
	for _, kv := range llm.KeyVars(a.getenv) {
		if kv.Set {
			set = append(set, kv.Name)
		}
	}
	fmt.Fprintf(w, "Provider variables set: %s\n", orNone(strings.Join(set, ", ")))

	check, _ := cmd.Flags().GetBool("check")
	if !check || provider != "ollama" {
		return nil
	}
	host := a.getenv("OLLAMA_HOST")
	client := llm.NewOllama(host, nil)
	result, err := client.Check(cmd.Context(), strings.TrimPrefix(effective, "ollama/"))
	if err != nil {
		if errors.Is(err, llm.ErrUnreachable) {
			fmt.Fprintf(a.stderr, "Ollama unreachable at %s. Is the server running? For local: ollama serve.\n", orDefault(host, llm.DefaultOllamaURL))
			fmt.Fprintf(a.stderr, "Details: %v\n", err)
			return errExit(exitGeneration)
		}
		return err
	}
	if effective == "none" {
		fmt.Fprintf(w, "Ollama OK (%d models available, no model configured)\n", len(result.ModelNames))
		return nil
	}
	if !result.ModelPresent {
		fmt.Fprintf(a.stderr, "Model %q not found. Pull it with: ollama pull %s\n", effective, strings.TrimPrefix(effective, "ollama/"))
		return errExit(exitUsage)
	}
	fmt.Fprintln(w, "Ollama OK")
	return nil
}

func orNone(s string) string {
	return orDefault(s, "none")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
