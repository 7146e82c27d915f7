// Package handlers defines the newsgate CLI commands.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newsgate/internal/config"
	"newsgate/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsgate",
		Short: "Reference-grounded AI news generation gate",
		Long: `Newsgate generates AI-assisted news items and drafts that stay factually
grounded in real, fetched reference articles, free of verbatim copying, and
clear of compliance risks.

Examples:
  # Generate a batch of short news items for a category
  newsgate news --category uplifting --keywords "AI regulation,climate tech"

  # Generate a quick draft on a topic
  newsgate draft --topic "EU AI Act enforcement"

  # Generate a long-form article
  newsgate draft --mode longform --topic "EU AI Act enforcement"

  # Show operational counters
  newsgate counters`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .newsgate.yaml)")

	rootCmd.AddCommand(NewNewsCmd())
	rootCmd.AddCommand(NewDraftCmd())
	rootCmd.AddCommand(NewCountersCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}
	logger.Init(cfg.Logging.Level)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
