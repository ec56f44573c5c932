// Package store abstracts the hosted approved-user-info table. Access
// control is the table's own row-level security; nothing in this
// service grants or restricts what a query may return.
package store

import (
	"context"

	"github.com/rollcall-app/rollcall/internal/models"
)

// RecordStore is the record-store contract. GetRow has exactly-one-row
// semantics: zero or multiple matches for an email is an error
// (models.ErrNotFound / models.ErrRowNotSingle). ListRows returns all
// rows ordered by email ascending. UpsertRows inserts or updates the
// given rows keyed on the email column.
type RecordStore interface {
	GetRow(ctx context.Context, email string) (models.Row, error)
	ListRows(ctx context.Context) ([]models.Row, error)
	UpsertRows(ctx context.Context, rows []models.Row) error
}

// StoreError carries the store's own message for user display, with
// the transport status for logging.
type StoreError struct {
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
