package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"gitmsg/cli/internal/commitmsg"
	"gitmsg/cli/internal/config"
	"gitmsg/cli/internal/erruser"
	"gitmsg/cli/internal/git"
	"gitmsg/cli/internal/llm"
	"gitmsg/cli/internal/logging"
	"gitmsg/cli/internal/version"
)

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1 // configuration, repository or nothing staged
	exitGeneration  = 2 // backend failure or rejected message
	exitInterrupted = 130
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

// app holds the process boundary so commands can run against buffers in tests.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	environ []string
	getwd   func() (string, error)
	copy    func(string) error
}

func newApp() *app {
	return &app{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		environ: os.Environ(),
		getwd:   os.Getwd,
		copy:    clipboard.WriteAll,
	}
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	return newApp().run(context.Background(), args)
}

func (a *app) run(ctx context.Context, args []string) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:     "gitmsg",
		Short:   "AI generated commit messages from staged changes",
		Version: version.String(),
	}
	rootCmd.PersistentFlags().String("config", "", "Config file path (default $XDG_CONFIG_HOME/gitmsg/config.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(a.newMsgCmd())
	rootCmd.AddCommand(a.newConfigCmd())
	rootCmd.AddCommand(a.newInfoCmd())
	rootCmd.AddCommand(a.newLearnCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		code := exitCode(err)
		a.report(err, code)
		return code
	}
	return exitOK
}

// exitCode maps an error onto the CLI exit status.
func exitCode(err error) int {
	var (
		genErr *llm.GenerationError
		valErr *commitmsg.ValidationError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &genErr), errors.As(err, &valErr):
		return exitGeneration
	default:
		return exitUsage
	}
}

// report prints "Error: msg", the remediation hint and, when it adds
// information, the underlying cause.
func (a *app) report(err error, code int) {
	if code == exitInterrupted {
		fmt.Fprintln(a.stderr, "\n\nInterrupted by user")
		return
	}
	msg := err.Error()
	var valErr *commitmsg.ValidationError
	if errors.As(err, &valErr) {
		msg = "Generated message is invalid: " + msg
	}
	fmt.Fprintf(a.stderr, "Error: %s\n", msg)
	if hint := erruser.HintOf(err); hint != "" {
		fmt.Fprintf(a.stderr, "\n%s\n", hint)
	}
	if u := errors.Unwrap(err); u != nil && !isSentinel(u) && !strings.Contains(msg, u.Error()) {
		fmt.Fprintf(a.stderr, "Details: %v\n", u)
	}
}

func isSentinel(err error) bool {
	return err == git.ErrNoStagedChanges
}

// getenv looks key up in the app environment; the last assignment wins.
func (a *app) getenv(key string) string {
	for i := len(a.environ) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(a.environ[i], "="); ok && k == key {
			return v
		}
	}
	return ""
}

// settings is the resolved configuration plus the loggers built from it.
type settings struct {
	path  string
	file  config.Layer
	env   config.Layer
	cfg   *config.Resolved
	log   *slog.Logger
	close func()
}

func (a *app) configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	if xdg := a.getenv("XDG_CONFIG_HOME"); xdg != "" {
		return config.PathIn(xdg), nil
	}
	return config.DefaultPath()
}

// loadSettings resolves configuration with cli as the top layer. When
// log_file is set, debug output is also appended there; callers must call
// close when done.
func (a *app) loadSettings(cmd *cobra.Command, cli config.Layer) (*settings, error) {
	level := "WARN"
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = "DEBUG"
	}
	log := logging.New(a.stderr, level)
	path, err := a.configPath(cmd)
	if err != nil {
		return nil, err
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	env := config.EnvLayer(a.environ, log)
	cfg, err := config.Resolve(cli, file, env, log)
	if err != nil {
		return nil, err
	}
	s := &settings{path: path, file: file, env: env, cfg: cfg, log: log, close: func() {}}
	if lf := cfg.String("log_file"); lf != "" {
		flog, closer, err := logging.NewWithFile(a.stderr, level, lf)
		if err != nil {
			log.Warn("could not open log file", "path", lf, "error", err)
		} else {
			s.log = flog
			s.close = func() { _ = closer.Close() }
		}
	}
	s.log.Debug("configuration resolved", "path", path, "values", cfg.Map())
	return s, nil
}
