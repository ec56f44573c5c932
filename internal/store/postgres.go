package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// PostgresStore accesses the approved-user-info table directly with a
// service-role connection. It stays schema-agnostic by reading column
// names from the result set instead of a fixed struct.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore creates a store over the given pool and table name.
func NewPostgresStore(db *database.DB, table string) *PostgresStore {
	return &PostgresStore{pool: db.Pool, table: table}
}

func (s *PostgresStore) tableIdent() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// GetRow fetches the single row keyed by email. Zero matches is
// models.ErrNotFound; more than one is models.ErrRowNotSingle.
func (s *PostgresStore) GetRow(ctx context.Context, email string) (models.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1",
		s.tableIdent(), pgx.Identifier{models.EmailColumn}.Sanitize())

	rows, err := s.pool.Query(ctx, query, email)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	switch len(result) {
	case 0:
		return nil, models.ErrNotFound
	case 1:
		return result[0], nil
	default:
		return nil, models.ErrRowNotSingle
	}
}

// ListRows fetches every row ordered by email ascending.
func (s *PostgresStore) ListRows(ctx context.Context) ([]models.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s ASC",
		s.tableIdent(), pgx.Identifier{models.EmailColumn}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanRows(rows)
}

// UpsertRows inserts or updates each row keyed on the email column,
// all within one transaction.
func (s *PostgresStore) UpsertRows(ctx context.Context, rowSet []models.Row) error {
	if len(rowSet) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.MapPostgresError(err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rowSet {
		query, args := buildUpsert(s.tableIdent(), row)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return database.MapPostgresError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// buildUpsert assembles INSERT ... ON CONFLICT (email) DO UPDATE from
// the row's own columns. Identifiers are sanitized; values travel as
// bind parameters.
func buildUpsert(table string, row models.Row) (string, []any) {
	columns := append([]string{models.EmailColumn}, row.Columns()...)

	idents := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns)-1)
	args := make([]any, len(columns))

	for i, col := range columns {
		idents[i] = pgx.Identifier{col}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
		if col != models.EmailColumn {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", idents[i], idents[i]))
		}
	}

	conflict := fmt.Sprintf("ON CONFLICT (%s) DO NOTHING",
		pgx.Identifier{models.EmailColumn}.Sanitize())
	if len(updates) > 0 {
		conflict = fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			pgx.Identifier{models.EmailColumn}.Sanitize(),
			strings.Join(updates, ", "))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) %s",
		table,
		strings.Join(idents, ", "),
		strings.Join(placeholders, ", "),
		conflict,
	)
	return query, args
}

// scanRows turns a dynamic result set into column->value maps.
func scanRows(rows pgx.Rows) ([]models.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]models.Row, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		row := make(models.Row, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}
