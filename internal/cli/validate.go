package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xcleanup/internal/config"
)

// NewValidateCommand creates the 'xcleanup validate' command
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "Configuration is valid: %s\n", path)
			fmt.Fprintf(out, "Schedule: %s\n", cfg.Schedule)
			fmt.Fprintf(out, "Disk check path: %s\n", cfg.DiskCheckPath)
			printRoots(cmd, "Scan roots", config.RootCandidates(cfg.Paths.AllowedPaths))
			if cfg.Emergency.Enabled {
				printRoots(cmd, "Emergency roots", config.RootCandidates(cfg.Emergency.Paths))
			}
			return nil
		},
	}
}

func printRoots(cmd *cobra.Command, title string, roots []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s:\n", title)
	if len(roots) == 0 {
		fmt.Fprintln(out, "  (none, patterns only)")
		return
	}
	for _, r := range roots {
		fmt.Fprintf(out, "  %s\n", r)
	}
}
