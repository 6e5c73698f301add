// Package handlers holds the cobra command tree: one handler file per
// operation, registered from the root command.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cvintake/internal/config"
	"cvintake/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cvintake",
		Short: "CV intake and matching pipeline",
		Long: `cvintake turns uploaded candidate CVs into a searchable talent database
and answers natural-language HR queries against it.

Examples:
  cvintake intake cv.pdf                    # Process a CV from local disk
  cvintake query "λογιστής με Softone"      # Translate (and execute) an HR query
  cvintake serve                            # Start the query/status HTTP server
  cvintake migrate up                       # Apply database migrations
  cvintake reindex --version v2             # Rebuild the search index behind its alias`,
	}

	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cvintake.yaml)")

	rootCmd.AddCommand(NewIntakeCmd())
	rootCmd.AddCommand(NewQueryCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewReindexCmd())

	return rootCmd
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
