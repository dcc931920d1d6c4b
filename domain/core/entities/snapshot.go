package entities

import (
	"sort"

	"tablegrid/domain/core/valueobjects"
)

// Snapshot is an ordered collection of rows representing the table at a point in time
type Snapshot []Row

// Len returns the number of rows
func (s Snapshot) Len() int {
	return len(s)
}

// Clone deep-copies the snapshot
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, row := range s {
		out[i] = row.Clone()
	}
	return out
}

// IDs returns the non-blank ids in row order
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for _, row := range s {
		if id := row.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// IDSet returns the set of non-blank ids
func (s Snapshot) IDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s))
	for _, row := range s {
		if id := row.ID(); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Index maps id to row. When ids repeat the first row wins.
func (s Snapshot) Index() map[string]Row {
	idx := make(map[string]Row, len(s))
	for _, row := range s {
		id := row.ID()
		if id == "" {
			continue
		}
		if _, seen := idx[id]; !seen {
			idx[id] = row
		}
	}
	return idx
}

// Find returns the row with the given id
func (s Snapshot) Find(id string) (Row, bool) {
	for _, row := range s {
		if row.ID() == id {
			return row, true
		}
	}
	return nil, false
}

// DuplicateIDs returns every id that appears more than once
func (s Snapshot) DuplicateIDs() []string {
	seen := make(map[string]int, len(s))
	var dups []string
	for _, row := range s {
		id := row.ID()
		if id == "" {
			continue
		}
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

// Columns returns the union of all column names, id first and the rest sorted
func (s Snapshot) Columns() []string {
	set := make(map[string]struct{})
	for _, row := range s {
		for k := range row {
			if k != valueobjects.IDColumn {
				set[k] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(set)+1)
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return append([]string{valueobjects.IDColumn}, cols...)
}

// SortedByID returns a copy ordered by id, rows without id last
func (s Snapshot) SortedByID() Snapshot {
	out := s.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ID(), out[j].ID()
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
	return out
}
