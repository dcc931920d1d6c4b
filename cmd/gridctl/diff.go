package main

import (
	"github.com/spf13/cobra"

	"tablegrid/application/queries"
	domain "tablegrid/domain/services"
)

type diffOptions struct {
	Original  string
	Working   string
	BlankRows string
}

func newDiffCommand(root *rootOptions) *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the change set between two snapshots without writing",
		Long: `Reconcile a working snapshot against an original one and print the rows
that would be added, deleted and modified. Rows without an id get a fresh one,
as they would on submit. The table is not contacted.`,
		Example: `  gridctl diff --original original.json --working edited.json
  gridctl diff --original original.json --working edited.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := opts.changeSet()
			if err != nil {
				return err
			}
			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), queries.NewPreviewResult(cs))
			}
			return writeChangeSet(cmd.OutOrStdout(), cs)
		},
	}

	opts.bind(cmd)
	return cmd
}

func (o *diffOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Original, "original", "", "snapshot the edits started from (required)")
	cmd.Flags().StringVar(&o.Working, "working", "", "edited snapshot, - for stdin (required)")
	cmd.Flags().StringVar(&o.BlankRows, "blank-rows", string(domain.BlankRowsModify), "rows whose columns are all blank: modify or delete")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("working")
}

func (o *diffOptions) changeSet() (domain.ChangeSet, error) {
	reconciler, err := reconcilerFor(o.BlankRows)
	if err != nil {
		return domain.ChangeSet{}, err
	}
	original, err := readSnapshot(o.Original)
	if err != nil {
		return domain.ChangeSet{}, err
	}
	working, err := readSnapshot(o.Working)
	if err != nil {
		return domain.ChangeSet{}, err
	}

	cs, err := reconciler.Reconcile(original, domain.BackfillIDs(original, working, nil))
	if err != nil {
		return domain.ChangeSet{}, commandError("%w", err)
	}
	return cs, nil
}
