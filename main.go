package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/treefix50/watchtrack/internal/config"
	"github.com/treefix50/watchtrack/internal/log"
)

// app carries state shared by the subcommands.
type app struct {
	cfg config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "watchtrack",
		Short:         "Track which parts of each video have actually been watched",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg
			log.Configure(log.Config{Level: cfg.LogLevel, Output: os.Stderr})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newServeCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newHashKeyCmd(),
		newDBCmd(a),
	)
	return root
}
