package store

import "database/sql"

// execer is the subset of *sql.Tx (and *sql.DB, for read-only helpers run
// outside a transaction) that the write-path helpers need.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
