package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ld/ainote"
	"github.com/ld/ainote/internal/platform"
)

var (
	verbose    bool
	configPath string
	userFlag   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ainote",
	Short: "Notes you can stack, share and study with an AI assistant",
	Long: `ainote keeps your notes in a local directory, SQLite or MongoDB,
merges them with the notes others share with you, and groups them by stack.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to ainote.yaml (default: searched upwards)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Act as this user (overrides config and "+platform.EnvUser+")")
}

// session bundles what a command needs to run.
type session struct {
	svc    *ainote.Service
	user   string
	config ainote.Config
}

// openService loads the configuration and opens the configured store.
// The caller must Close the returned service.
func openService() (*session, error) {
	cfg, err := ainote.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if userFlag != "" {
		cfg.User = userFlag
	}

	logger := slog.Default()
	if !verbose {
		level, _ := platform.ParseLevel(cfg.LogLevel)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	opts := append(cfg.Options(logger), ainote.WithSharedErrorHandler(func(err error) {
		fmt.Fprintf(os.Stderr, "warning: shared notes unavailable: %v\n", err)
	}))
	svc, err := ainote.New(cfg.ResolvedURI(), opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Adapter, err)
	}
	return &session{svc: svc, user: cfg.User, config: cfg}, nil
}
