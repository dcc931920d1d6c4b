package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"tablegrid/application/services"
	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cells renders the non-id columns of row as name=value pairs
func cells(row entities.Row) string {
	cols := row.Columns()
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s=%s", c, entities.Canonical(row[c])))
	}
	return strings.Join(parts, " ")
}

func writeSnapshotText(w io.Writer, rows entities.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	cols := rows.Columns()
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows.SortedByID() {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = entities.Canonical(row[c])
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	fmt.Fprintf(tw, "(%d rows)\n", rows.Len())
	return tw.Flush()
}

// writeChangeSet prints one line per row, ordered deleted, added, modified
// like the replay itself
func writeChangeSet(w io.Writer, cs domain.ChangeSet) error {
	if cs.Empty() {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range cs.Deleted {
		fmt.Fprintf(tw, "-\t%s\t%s\n", row.ID(), cells(row))
	}
	for _, row := range cs.Added {
		fmt.Fprintf(tw, "+\t%s\t%s\n", row.ID(), cells(row))
	}
	for _, row := range cs.Modified {
		before := cs.Before[row.ID()]
		changes := make([]string, 0)
		for _, c := range before.Diff(row) {
			old, had := before[c]
			now, has := row[c]
			switch {
			case !had:
				changes = append(changes, fmt.Sprintf("%s: (none) -> %s", c, entities.Canonical(now)))
			case !has:
				changes = append(changes, fmt.Sprintf("%s: %s -> (removed)", c, entities.Canonical(old)))
			default:
				changes = append(changes, fmt.Sprintf("%s: %s -> %s", c, entities.Canonical(old), entities.Canonical(now)))
			}
		}
		fmt.Fprintf(tw, "~\t%s\t%s\n", row.ID(), strings.Join(changes, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := cs.Summary()
	_, err := fmt.Fprintf(w, "%d added, %d deleted, %d modified\n", s.Added, s.Deleted, s.Modified)
	return err
}

func writeApplyResult(w io.Writer, r services.ApplyResult) error {
	for _, id := range r.Deleted {
		fmt.Fprintf(w, "deleted  %s\n", id)
	}
	for _, id := range r.Added {
		fmt.Fprintf(w, "added    %s\n", id)
	}
	for _, id := range r.Modified {
		fmt.Fprintf(w, "modified %s\n", id)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "FAILED   %s %s: %s\n", f.Op, f.ID, f.Message)
	}
	_, err := fmt.Fprintf(w, "%d applied, %d failed\n", len(r.Deleted)+len(r.Added)+len(r.Modified), len(r.Failures))
	return err
}
