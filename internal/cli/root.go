// Package cli provides the command-line interface for hivedeck-drive.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/hivedeck-drive/config"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
)

var (
	// Global flags
	envFile    string
	apiBaseURL string
	verbose    bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version is set by the main package at startup
var Version = "v1.0.0-dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hivedeck-drive",
		Short: "Browse and manage a hivedeck drive from the terminal",
		Long: `hivedeck-drive ` + Version + `
Client for a hivedeck drive backend.

Interactive:
  browse   full-screen browser with search, sorting, selection and moves
  serve    local HTTP bridge driving one browsing session

Scripting:
  ls, mkdir, rm, mv, upload, download, usage

Configuration is read from the environment and a .env file
(DRIVE_API_URL, DRIVE_SESSION_TOKEN, ...).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefault()
			if verbose {
				logging.SetGlobalLevel(logging.ParseLevel("debug"))
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: $ENV_FILE or .env)")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Drive API base URL (overrides DRIVE_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = Version

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newUsageCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return logger
}

// GetContext returns the global CLI context, cancelled on Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig applies the global flags on top of the environment.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		cfg, err = config.LoadFrom(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if apiBaseURL != "" {
		cfg.DriveAPIURL = strings.TrimSuffix(apiBaseURL, "/")
	}
	if verbose {
		cfg.LogLevel = "debug"
	} else {
		logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
