package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/actionsum/focuslog/internal/config"
	"github.com/actionsum/focuslog/internal/daemon"
	"github.com/actionsum/focuslog/internal/database"
	"github.com/actionsum/focuslog/internal/focus"
	"github.com/actionsum/focuslog/internal/memory"
	"github.com/actionsum/focuslog/internal/tracker"
	"github.com/actionsum/focuslog/pkg/detector"
	"github.com/actionsum/focuslog/pkg/integrations/x11"
)

const stopTimeout = 10 * time.Second

func newStartCommand(opts *options) *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the tracking daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg

			// Check if already running
			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				return fmt.Errorf("daemon is already running (PID: %d)", pid)
			}

			if foreground || daemon.IsChild() {
				return runTracker(cfg, dm, daemon.IsChild())
			}

			// Parent process - re-exec detached and exit
			childArgs := []string{"start"}
			if opts.configPath != "" {
				childArgs = append(childArgs, "--config", opts.configPath)
			}
			childPID, err := daemon.Daemonize(childArgs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon started successfully (PID: %d)\n", childPID)
			fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", cfg.Daemon.LogFile)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Track in the foreground instead of detaching")
	return cmd
}

func runTracker(cfg *config.Config, dm *daemon.Daemon, toLogFile bool) error {
	if toLogFile {
		// Redirect logs to file
		logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		}
	}

	store, _, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	windows, inputs, err := detector.New(cfg.Tracker.Display, cfg.Tracker.InputPollInterval)
	if err != nil {
		return fmt.Errorf("failed to initialize window detector: %w", err)
	}
	log.Printf("Window detector initialized: %s", windows.GetDisplayServer())

	pressure, err := memory.Self()
	if err != nil {
		windows.Close()
		inputs.Close()
		return err
	}

	// Write PID file
	if err := dm.WritePID(); err != nil {
		windows.Close()
		inputs.Close()
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemovePID()

	svc := tracker.NewService(cfg, windows, inputs, store, pressure)

	// Setup signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting focuslog daemon...")
	log.Printf("Configuration:\n%s", cfg.String())

	if err := svc.Start(ctx); err != nil {
		log.Printf("Tracker error: %v", err)
		return err
	}

	log.Println("Daemon stopped successfully")
	return nil
}

func newStopCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tracking daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dm := daemon.New(opts.cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}

			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(stopTimeout); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped successfully")
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the focused window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			out := cmd.OutOrStdout()
			dm := daemon.New(cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}

			if !running {
				fmt.Fprintln(out, "Status: Not running")
			} else {
				fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
				if proc, err := memory.ForPID(pid); err == nil {
					rss, rssErr := proc.RSS()
					pct, pctErr := proc.Percent()
					if rssErr == nil && pctErr == nil {
						fmt.Fprintf(out, "Memory: %s (%.2f%%, flush above %.2f%%)\n",
							humanize.Bytes(rss), pct, cfg.Flush.MemoryThreshold)
					}
				}
			}
			fmt.Fprintf(out, "Store: %s\n", describeStore(cfg))

			writeStoreStatus(cmd, cfg)

			// Still show current window detection even when not running
			source, err := x11.NewDetector(cfg.Tracker.Display)
			if err != nil {
				fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
				return nil
			}
			defer source.Close()

			state := focus.NewSignal(focus.NewResolver(source)).Prime()
			fmt.Fprintf(out, "\nCurrent Window:\n")
			fmt.Fprintf(out, "  ID: 0x%x\n", uint32(state.Window))
			fmt.Fprintf(out, "  Title: %s\n", titleOrNone(state.Title))
			fmt.Fprintf(out, "  Display: %s\n", source.GetDisplayServer())
			return nil
		},
	}
}

func writeStoreStatus(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	_, repo, closeStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(out, "Store unavailable: %v\n", err)
		return
	}
	defer closeStore()
	if repo == nil {
		return
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if n, err := repo.Count(ctx); err == nil {
		fmt.Fprintf(out, "Stored intervals: %s\n", humanize.Comma(n))
	}
	if latest, err := repo.GetLatest(ctx); err == nil && latest != nil {
		fmt.Fprintf(out, "Last flushed interval: %s (%s)\n", latest.Title, humanize.Time(latest.End))
	}
	if errs, err := repo.RecentErrors(ctx, 3); err == nil && len(errs) > 0 {
		fmt.Fprintf(out, "\nRecent Errors:\n")
		for _, e := range errs {
			fmt.Fprintf(out, "  %s [%s] %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Component, e.ErrorMsg)
		}
	}
}

func describeStore(cfg *config.Config) string {
	if cfg.Store.Kind == config.StoreCSV {
		return "csv " + cfg.Store.CSVPath
	}
	if cfg.Store.Path == "" {
		path, err := database.DefaultPath()
		if err != nil {
			return "sqlite (default path)"
		}
		return "sqlite " + path
	}
	return "sqlite " + cfg.Store.Path
}

func titleOrNone(title string) string {
	if title == "" {
		return "(no focused window)"
	}
	return title
}
