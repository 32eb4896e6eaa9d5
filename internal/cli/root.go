// Package cli wires the xcleanup commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"xcleanup/internal/config"
	"xcleanup/internal/exitcodes"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// stdinIsTerminal reports whether r is an interactive terminal. Tests
// replace it.
var stdinIsTerminal = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitError carries an exit code that cannot be derived from the error
// chain alone.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitcodes.FromError(err)
}

// NewRootCommand creates and returns the root cobra command for xcleanup
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xcleanup",
		Short: "Age and policy based cleanup of files and empty directories",
		Long: `xcleanup deletes files and empty directories under configured roots once
they are older than a minimum age, honouring exclusions, protected paths and a
cooldown ledger. When free space falls below configured thresholds it switches
to emergency roots.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultPath, "Path to configuration file")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewDaemonCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewValidateCommand())

	return cmd
}

// Execute runs the root command with args and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		red := color.New(color.FgRed)
		red.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return ExitCode(err)
}

func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}
