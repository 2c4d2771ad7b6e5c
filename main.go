package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.design/x/hotkey/mainthread"

	"markestedt/pasteimagepath/config"
	"markestedt/pasteimagepath/storage"
	"markestedt/pasteimagepath/systray"
	"markestedt/pasteimagepath/tempstore"
)

func init() {
	// the tray and the hotkey service both need the process main thread
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	noTray     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pasteimagepath",
		Short: "Paste clipboard images as file paths",
		Long: "pasteimagepath watches for a global hotkey. When the clipboard holds an image it is saved\n" +
			"as a PNG and its path is pasted into the focused app, then the clipboard is restored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	root.Flags().BoolVar(&opts.noTray, "no-tray", false, "Run without the menu bar icon")

	root.AddCommand(newSweepCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newHistoryCommand(opts))
	return root
}

func runAgent(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	slog.Info("Configuration loaded", "path", cfg.Path())

	agent, err := NewAgent(cfg)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !cfg.Tray.Enabled || opts.noTray {
		var runErr error
		mainthread.Init(func() { runErr = agent.Run(ctx) })
		slog.Info("Paste Image Path stopped")
		return runErr
	}

	tray := systray.NewSystrayManager(agent.Orchestrator(), agent.WebURL())
	errCh := make(chan error, 1)
	go func() {
		errCh <- agent.Run(ctx)
		cancel()
	}()
	go func() {
		select {
		case <-tray.WaitForQuit():
			cancel()
		case <-ctx.Done():
		}
	}()

	tray.Run(ctx)
	cancel()
	err = <-errCh
	slog.Info("Paste Image Path stopped")
	return err
}

func newSweepCommand(opts *rootOptions) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete saved clipboard images older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			store := tempstore.New(cfg.Storage.ScratchDir)
			n, err := store.Sweep(maxAge)
			if err != nil {
				return fmt.Errorf("failed to sweep %s: %w", store.Dir(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s) from %s\n", n, store.Dir())
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", tempstore.DefaultMaxAge, "Delete images older than this")
	return cmd
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return configCmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pastes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			db, err := storage.Open(filepath.Dir(cfg.Path()))
			if err != nil {
				return err
			}
			defer db.Close()

			pastes, err := db.GetPastes(limit, 0)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), pastes)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max entries to show")
	return cmd
}

func printHistory(w io.Writer, pastes []storage.Paste) error {
	if len(pastes) == 0 {
		_, err := fmt.Fprintln(w, "No pastes recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTRIGGER\tOUTCOME\tLATENCY\tPATH")
	for _, p := range pastes {
		path := p.Path
		if path == "" {
			path = "(passthrough)"
		}
		outcome := p.Outcome
		if p.Forced {
			outcome += " (forced)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n",
			p.Timestamp.Local().Format("2006-01-02 15:04:05"), p.Trigger, outcome, p.LatencyMs, path)
	}
	return tw.Flush()
}

func resolveConfigPath(opts *rootOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig loads the config file and installs the default logger
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	setupLogging(level)
	return cfg, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}
