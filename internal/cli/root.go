// Package cli implements the redrive command line interface. Most commands
// talk to a running daemon over the admin API; tick operates on the database
// directly.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/redrive/internal/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking REDRIVE_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("REDRIVE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the redrive CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "redrive",
		Short: "redrive manages the persisted retry backlog",
		Long:  "redrive enqueues, inspects, and retries backlog records against a running redrived daemon.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Daemon URL (or REDRIVE_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newEnqueueCmd(),
		newListCmd(),
		newGetCmd(),
		newStatsCmd(),
		newRetryCmd(),
		newTickCmd(),
	)

	return root
}
