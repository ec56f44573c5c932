package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowColumns(t *testing.T) {
	row := Row{
		"email":   "a@x.com",
		"plan_id": "X1",
		"active":  true,
	}

	assert.Equal(t, []string{"active", "plan_id"}, row.Columns())
	assert.Equal(t, "a@x.com", row.Email())
}

func TestCoerceText(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "X1", "X1"},
		{"bool", true, "true"},
		{"json integer", float64(42), "42"},
		{"json fraction", 1.5, "1.5"},
		{"int64", int64(7), "7"},
		{"int", 7, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceText(tt.value))
		})
	}
}
