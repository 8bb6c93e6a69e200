package cmd

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X debatewatch/internal/cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "debatewatch",
	Short: "Watch two agents debate, live",
	Long: `debatewatch connects to a debate server over WebSocket and stages the
debate in the terminal: two animated avatars, speech bubbles, a life
purpose meter per agent and a running timeline.

Run without a subcommand to watch. Use "debatewatch demo" to serve a
scripted debate locally.`,
	SilenceUsage: true,
	RunE:         runWatch,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/debatewatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	addWatchFlags(rootCmd.Flags())
}
