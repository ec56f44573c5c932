package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/models"
)

func TestBuildUpsert(t *testing.T) {
	query, args := buildUpsert(`"approved_user_info"`, models.Row{
		"email":   "user@school.edu",
		"plan_id": "X1",
	})

	assert.Equal(t,
		`INSERT INTO "approved_user_info" ("email", "plan_id") VALUES ($1, $2) `+
			`ON CONFLICT ("email") DO UPDATE SET "plan_id" = EXCLUDED."plan_id"`,
		query)
	require.Len(t, args, 2)
	assert.Equal(t, "user@school.edu", args[0])
	assert.Equal(t, "X1", args[1])
}

func TestBuildUpsert_ColumnOrderIsStable(t *testing.T) {
	row := models.Row{
		"email":        "user@school.edu",
		"plan_id":      "X1",
		"member_id":    "M7",
		"group_number": "G2",
	}

	first, _ := buildUpsert(`"t"`, row)
	for i := 0; i < 10; i++ {
		query, _ := buildUpsert(`"t"`, row)
		assert.Equal(t, first, query)
	}

	// Email leads; the rest follow in sorted order.
	assert.Contains(t, first, `("email", "group_number", "member_id", "plan_id")`)
}

func TestBuildUpsert_EmailOnlyRow(t *testing.T) {
	query, args := buildUpsert(`"t"`, models.Row{"email": "user@school.edu"})

	assert.Equal(t,
		`INSERT INTO "t" ("email") VALUES ($1) ON CONFLICT ("email") DO NOTHING`,
		query)
	require.Len(t, args, 1)
	assert.Equal(t, "user@school.edu", args[0])
}

func TestBuildUpsert_QuotesHostileIdentifiers(t *testing.T) {
	query, _ := buildUpsert(`"t"`, models.Row{
		"email":          "user@school.edu",
		`plan"; DROP --`: "x",
	})

	// Embedded quotes are doubled inside the quoted identifier, so the
	// column name cannot break out of it.
	assert.Contains(t, query, `"plan""; DROP --"`)
}
