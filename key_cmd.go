package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treefix50/watchtrack/internal/auth"
)

func newHashKeyCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "hash-key",
		Short: "Generate an API key and its bcrypt hash",
		Long:  "Generate an API key (or hash the one given with --key) and print the value to put in API_KEY_HASH.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				generated, err := auth.GenerateKey()
				if err != nil {
					return err
				}
				key = generated
			}
			hash, err := auth.HashKey(key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API key:      %s\n", key)
			fmt.Fprintf(out, "API_KEY_HASH: %s\n", hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "hash this key instead of generating one")
	return cmd
}
