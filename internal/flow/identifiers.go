package flow

import (
	"strings"

	"github.com/rollcall-app/rollcall/internal/models"
)

// DeriveIdentifiers extracts the displayable label/value pairs from one
// record row. Only non-email columns with a non-empty value qualify;
// labels are the column names with separators replaced by spaces.
// Every call site that fetches a row (session restore, post-verify
// fetch, admin load) derives through this one function.
func DeriveIdentifiers(row models.Row) []models.Identifier {
	ids := make([]models.Identifier, 0, len(row))
	for _, col := range row.Columns() {
		value := models.CoerceText(row[col])
		if value == "" {
			continue
		}
		ids = append(ids, models.Identifier{
			Label: identifierLabel(col),
			Value: value,
		})
	}
	return ids
}

// identifierLabel turns a column name into its display label, e.g.
// "plan_id" -> "plan id".
func identifierLabel(column string) string {
	label := strings.ReplaceAll(column, "_", " ")
	label = strings.ReplaceAll(label, "-", " ")
	return label
}
