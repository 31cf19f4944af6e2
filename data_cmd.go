package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/treefix50/watchtrack/internal/storage"
	"github.com/treefix50/watchtrack/internal/tracker"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <videoId>",
		Short: "Print the progress of one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			loader, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			view, err := tracker.New(loader.Catalog(), store).Progress(ctx, args[0])
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), view)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every progress record as one JSON map",
		Long:  "Write every stored progress record, keyed by video id, to file or standard output.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			states, err := store.Snapshot(ctx)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return writeIndented(cmd.OutOrStdout(), states)
			}
			raw, err := json.MarshalIndent(states, "", "  ")
			if err != nil {
				return err
			}
			if err := renameio.WriteFile(args[0], append(raw, '\n'), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", len(states), args[0])
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load progress records from an export",
		Long:  "Load progress records from a JSON map as written by export. Intervals are re-merged and existing records for the same videos are replaced.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			states, err := storage.DecodeExport(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Restore(ctx, states); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d records\n", len(states))
			return nil
		},
	}
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
