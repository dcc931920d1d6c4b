package entities

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"tablegrid/domain/core/valueobjects"
)

// Row is one record of the table: column name to scalar value.
// The column set is not fixed and may differ from row to row.
type Row map[string]any

// ID returns the identity of the row, or "" when the row has none yet
func (r Row) ID() string {
	v, ok := r[valueobjects.IDColumn]
	if !ok {
		return ""
	}
	return strings.TrimSpace(Canonical(v))
}

// HasID reports whether the row carries a non-blank id
func (r Row) HasID() bool {
	return r.ID() != ""
}

// RowID returns the identity as a value object
func (r Row) RowID() (valueobjects.RowID, error) {
	return valueobjects.NewRowIDFromString(r.ID())
}

// WithID returns a copy of the row with the given id
func (r Row) WithID(id valueobjects.RowID) Row {
	out := r.Clone()
	out[valueobjects.IDColumn] = id.String()
	return out
}

// Clone returns a deep copy of the row
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Attributes returns a copy of every non-id column
func (r Row) Attributes() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if k == valueobjects.IDColumn {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Columns returns the non-id column names in sorted order
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		if k != valueobjects.IDColumn {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

// IsBlank reports whether every non-id column is empty after canonicalization
func (r Row) IsBlank() bool {
	for k, v := range r {
		if k == valueobjects.IDColumn {
			continue
		}
		if strings.TrimSpace(Canonical(v)) != "" {
			return false
		}
	}
	return true
}

// Diff returns the columns whose canonical text differs between r and other.
// A column present in only one of the rows is a difference.
func (r Row) Diff(other Row) []string {
	var changed []string
	for k, v := range r {
		ov, ok := other[k]
		if !ok || Canonical(v) != Canonical(ov) {
			changed = append(changed, k)
		}
	}
	for k := range other {
		if _, ok := r[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// Equal compares two rows column by column as text
func (r Row) Equal(other Row) bool {
	return len(r.Diff(other)) == 0
}

// MissingFrom returns the non-id columns of r that other does not have
func (r Row) MissingFrom(other Row) []string {
	var missing []string
	for k := range r {
		if k == valueobjects.IDColumn {
			continue
		}
		if _, ok := other[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// Canonical renders a cell value as text. Numeric type distinctions are lost:
// 1, 1.0 and "1" all canonicalize to "1". Numbers keep every digit.
func Canonical(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return canonicalNumber(strconv.FormatFloat(val, 'f', -1, 64))
	case float32:
		return canonicalNumber(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case json.Number:
		return canonicalNumber(val.String())
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// canonicalNumber renders decimal text in its shortest exact form, so "1.50",
// "1.5" and "15e-1" agree while 9007199254740993 stays distinct from
// 9007199254740992. Text that is not a finite decimal is returned unchanged.
func canonicalNumber(text string) string {
	var r big.Rat
	if _, ok := r.SetString(text); !ok {
		return text
	}
	if r.IsInt() {
		return r.Num().String()
	}
	prec, exact := r.FloatPrec()
	if !exact {
		return text
	}
	return r.FloatString(prec)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), val...)
	default:
		return val
	}
}
