package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// IDColumn is the name of the identity column of every row
const IDColumn = "id"

// RowID is a value object representing the identity of a table row.
// Ids read from the table are taken verbatim; only freshly generated ids are UUIDs.
type RowID struct {
	value string
}

// NewRowID creates a new random RowID
func NewRowID() RowID {
	return RowID{value: uuid.NewString()}
}

// NewRowIDFromString creates a RowID from an existing string
func NewRowIDFromString(id string) (RowID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RowID{}, errors.New("row ID cannot be empty")
	}
	return RowID{value: id}, nil
}

// String returns the string representation of the RowID
func (id RowID) String() string {
	return id.value
}

// Equals checks if two RowIDs are equal
func (id RowID) Equals(other RowID) bool {
	return id.value == other.value
}

// IsZero checks if the RowID is the zero value
func (id RowID) IsZero() bool {
	return id.value == ""
}
