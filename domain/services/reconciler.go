package services

import (
	"errors"
	"fmt"
	"strings"

	"tablegrid/domain/core/entities"
)

// BlankRowPolicy decides what an all-blank row with an existing id means
type BlankRowPolicy string

const (
	// BlankRowsModify treats a blanked row as an edit; rows are only deleted by removing them
	BlankRowsModify BlankRowPolicy = "modify"
	// BlankRowsDelete treats a row blanked in the working copy as a deletion.
	// Rows that were already blank in the original are left alone.
	BlankRowsDelete BlankRowPolicy = "delete"
)

// ParseBlankRowPolicy parses a policy name, defaulting to BlankRowsModify
func ParseBlankRowPolicy(s string) (BlankRowPolicy, error) {
	switch BlankRowPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BlankRowsModify:
		return BlankRowsModify, nil
	case BlankRowsDelete:
		return BlankRowsDelete, nil
	default:
		return "", fmt.Errorf("unknown blank row policy %q", s)
	}
}

var (
	// ErrBlankID is returned when a working row reaches reconciliation without an id
	ErrBlankID = errors.New("working row has no id")
	// ErrDuplicateID is returned when two working rows share an id
	ErrDuplicateID = errors.New("duplicate row id")
)

// ChangeSet is the difference between an original and a working snapshot.
// The three sets are disjoint by id.
type ChangeSet struct {
	Added    entities.Snapshot `json:"added"`
	Deleted  entities.Snapshot `json:"deleted"`
	Modified entities.Snapshot `json:"modified"`

	// Before holds the original version of every modified row, keyed by id
	Before map[string]entities.Row `json:"-"`
}

// ChangeSummary counts the rows of a change set
type ChangeSummary struct {
	Added    int `json:"added"`
	Deleted  int `json:"deleted"`
	Modified int `json:"modified"`
}

// Empty reports whether the change set has nothing to apply
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Deleted) == 0 && len(c.Modified) == 0
}

// Summary returns the row counts
func (c ChangeSet) Summary() ChangeSummary {
	return ChangeSummary{
		Added:    len(c.Added),
		Deleted:  len(c.Deleted),
		Modified: len(c.Modified),
	}
}

// Reconciler computes change sets between snapshots
type Reconciler struct {
	BlankRows BlankRowPolicy
}

// NewReconciler creates a reconciler with the given blank row policy
func NewReconciler(policy BlankRowPolicy) *Reconciler {
	if policy == "" {
		policy = BlankRowsModify
	}
	return &Reconciler{BlankRows: policy}
}

// Reconcile diffs original against working with the default policy
func Reconcile(original, working entities.Snapshot) (ChangeSet, error) {
	return NewReconciler(BlankRowsModify).Reconcile(original, working)
}

// Reconcile computes the added, deleted and modified rows. Every working row
// must carry an id (see BackfillIDs) and ids must be unique.
func (r *Reconciler) Reconcile(original, working entities.Snapshot) (ChangeSet, error) {
	for i, row := range working {
		if !row.HasID() {
			return ChangeSet{}, fmt.Errorf("row %d: %w", i, ErrBlankID)
		}
	}
	if dups := working.DuplicateIDs(); len(dups) > 0 {
		return ChangeSet{}, fmt.Errorf("%w: %s", ErrDuplicateID, strings.Join(dups, ", "))
	}

	originalByID := original.Index()
	workingIDs := working.IDSet()

	cs := ChangeSet{
		Added:    entities.Snapshot{},
		Deleted:  entities.Snapshot{},
		Modified: entities.Snapshot{},
		Before:   make(map[string]entities.Row),
	}

	for _, row := range working {
		id := row.ID()
		before, existed := originalByID[id]
		switch {
		case !existed:
			cs.Added = append(cs.Added, row.Clone())
		case r.BlankRows == BlankRowsDelete && row.IsBlank() && !before.IsBlank():
			cs.Deleted = append(cs.Deleted, before.Clone())
		case !row.Equal(before):
			cs.Modified = append(cs.Modified, row.Clone())
			cs.Before[id] = before.Clone()
		}
	}

	seen := make(map[string]struct{}, len(original))
	for _, row := range original {
		id := row.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, kept := workingIDs[id]; !kept {
			cs.Deleted = append(cs.Deleted, row.Clone())
		}
	}

	return cs, nil
}
