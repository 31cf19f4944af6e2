package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/treefix50/watchtrack/internal/config"
	"github.com/treefix50/watchtrack/internal/storage"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the sqlite database",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Run an integrity check",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.openSQLite(true)
				if err != nil {
					return err
				}
				defer store.Close()

				results, err := store.IntegrityCheck()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(results, "\n"))
				if len(results) != 1 || results[0] != "ok" {
					return errors.New("integrity check failed")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "vacuum [target]",
			Short: "Compact the database, or write a compacted copy to target",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openSQLite(false)
				if err != nil {
					return err
				}
				defer store.Close()

				var target string
				if len(args) == 1 {
					target = args[0]
				}
				if err := store.Vacuum(target); err != nil {
					return fmt.Errorf("vacuum: %w", err)
				}
				return store.Analyze()
			},
		},
	)
	return cmd
}

func (a *app) openSQLite(readOnly bool) (*storage.Store, error) {
	if backend := a.cfg.Store.Backend; backend != "" && backend != config.BackendSQLite {
		return nil, fmt.Errorf("db commands need the sqlite backend, configured: %s", backend)
	}
	return storage.Open(storage.SQLitePath(a.cfg.DataDir), storage.Options{ReadOnly: readOnly})
}
