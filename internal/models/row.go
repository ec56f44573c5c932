package models

import (
	"fmt"
	"sort"
	"strconv"
)

// EmailColumn is the key column of the approved-user-info table. It is
// excluded from identifier and admin-column derivation everywhere.
const EmailColumn = "email"

// Row is one record of the approved-user-info table: a mapping from
// column name to value. The service is schema-agnostic; only the email
// column has meaning here.
type Row map[string]any

// Email returns the row's email key coerced to text.
func (r Row) Email() string {
	return CoerceText(r[EmailColumn])
}

// Columns returns the row's column names excluding email, sorted for
// deterministic iteration.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for name := range r {
		if name == EmailColumn {
			continue
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// Identifier is a displayed label/value pair derived from one non-email
// column of a user's record row.
type Identifier struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CoerceText converts a store value to its display text. Stores hand
// back untyped JSON or driver values; everything is shown as text.
func CoerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		// JSON numbers decode as float64; print integers without a
		// fractional part.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
