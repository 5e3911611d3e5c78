package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslog/internal/config"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "focuslog"

// options is shared by every command. cfg is loaded before any command runs.
type options struct {
	configPath string
	cfg        *config.Config
}

// NewRootCommand builds the focuslog command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Window focus time tracker",
		Long: `focuslog records which X11 window title holds focus and for how long.

Configuration is read from ~/.config/focuslog/config.toml (or --config),
then overridden by FOCUSLOG_* environment variables.

Examples:
  focuslog start                 # Start the tracking daemon
  focuslog start --foreground    # Track in this terminal
  focuslog status                # Show daemon status and current focused title
  focuslog report week           # Per-title totals for this week
  focuslog report all --json     # Everything, as JSON
  focuslog stop                  # Stop the daemon, flushing pending intervals`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.New(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Config file path (default ~/.config/focuslog/config.toml)")

	root.AddCommand(
		newStartCommand(opts),
		newStopCommand(opts),
		newStatusCommand(opts),
		newReportCommand(opts),
		newWatchCommand(opts),
		newClearCommand(opts),
		newVersionCommand(),
	)

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", appName, version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
