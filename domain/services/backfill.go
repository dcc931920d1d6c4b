package services

import (
	"tablegrid/domain/core/entities"
	"tablegrid/domain/core/valueobjects"
)

// IDGenerator produces fresh row identities
type IDGenerator func() valueobjects.RowID

// BackfillIDs returns a copy of working where every row without an id gets a
// freshly generated one. Generated ids never collide with an id already present
// in original or working. Rows without an id whose columns are all blank carry
// no data and are dropped.
func BackfillIDs(original, working entities.Snapshot, gen IDGenerator) entities.Snapshot {
	if gen == nil {
		gen = valueobjects.NewRowID
	}

	taken := original.IDSet()
	for id := range working.IDSet() {
		taken[id] = struct{}{}
	}

	out := make(entities.Snapshot, 0, len(working))
	for _, row := range working {
		if row.HasID() {
			out = append(out, row.Clone())
			continue
		}
		if row.IsBlank() {
			continue
		}

		id := gen()
		for {
			if _, clash := taken[id.String()]; !clash && !id.IsZero() {
				break
			}
			id = gen()
		}
		taken[id.String()] = struct{}{}
		out = append(out, row.WithID(id))
	}
	return out
}
