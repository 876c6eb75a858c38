package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"
var help bool
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sshmux",
	Short: "Multiplexed remote command execution over OpenSSH",
	Long: `Run commands on remote hosts through shared SSH sessions.

sshmux wraps the OpenSSH client and multiplexes all remote
commands of a host over a single authenticated connection,
so the handshake cost is paid once per host instead of once
per command. Your existing ssh configuration continues to
apply. Only password-less authentication is supported.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if help {
			cmd.Help()
			os.Exit(0)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&help, "help", "h", false, "display help for command")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger creates the logger for command line invocations.
func newLogger() zerolog.Logger {
	logger := log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	if verbose {
		return logger.Level(zerolog.DebugLevel)
	}
	return logger.Level(zerolog.InfoLevel)
}

// Execute starts the invocation of the command line interface.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
