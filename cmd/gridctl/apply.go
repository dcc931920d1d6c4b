package main

import (
	"context"
	"fmt"

	"tablegrid/application/services"

	"github.com/spf13/cobra"
)

type applyOptions struct {
	diffOptions
	UnsetRemoved bool
	DryRun       bool
}

func newApplyCommand(root *rootOptions) *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Replay the change set between two snapshots against the table",
		Long: `Reconcile the working snapshot against the original and write the
difference: deletes first, then adds, then modifications. Every row is written
independently; failures are listed and do not stop the other rows.

Exit codes:
  0 - every row applied
  1 - one or more rows failed
  2 - command error`,
		Example: `  gridctl apply --table items --original original.json --working edited.json
  gridctl apply --store local --original a.json --working b.json --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := opts.changeSet()
			if err != nil {
				return err
			}
			if opts.DryRun || cs.Empty() {
				return writeChangeSet(cmd.OutOrStdout(), cs)
			}

			ctx := context.Background()
			store, _, closeStore, err := root.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			applier := services.NewChangeApplier(store, nil, root.logger(), opts.UnsetRemoved)
			result := applier.Apply(ctx, cs)

			if root.Format == "json" {
				err = writeJSON(cmd.OutOrStdout(), result)
			} else {
				err = writeApplyResult(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}
			if !result.OK() {
				return &exitError{code: exitFailure, err: fmt.Errorf("%d row operations failed", len(result.Failures))}
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.UnsetRemoved, "unset-removed", false, "REMOVE columns that disappeared from modified rows")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the change set without writing")
	return cmd
}
