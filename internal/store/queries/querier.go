// internal/store/queries/querier.go
package queries

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNoRows is returned by single-row lookups that matched nothing.
var ErrNoRows = errors.New("no rows in result set")

// Querier is the read surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
