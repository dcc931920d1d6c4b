package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newScanCommand(root *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read every row of the table as a snapshot",
		Example: `  gridctl scan --table items > original.json
  gridctl scan --store local --local-path ./data -o original.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, _, closeStore, err := root.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			rows, err := store.Scan(ctx)
			if err != nil {
				return commandError("scan: %w", err)
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return commandError("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if root.Format == "text" && out == "" {
				return writeSnapshotText(w, rows)
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rows.SortedByID()); err != nil {
				return commandError("write snapshot: %w", err)
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", rows.Len(), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the snapshot as JSON to this file")
	return cmd
}
