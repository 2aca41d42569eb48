package executor

import (
	"context"
	"time"
)

// Row is a single result row materialized as a column-name to value mapping.
type Row map[string]interface{}

// Conn defines the contract for a single database connection.
// This abstraction allows for connection pooling and alternative backends
// (the production postgres backend, or scripted mocks in tests).
//
// A Conn is exclusively owned by one caller between Acquire and Release; it
// is never shared by two in-flight statements.
type Conn interface {
	// Query runs a row-returning statement and materializes every row.
	Query(ctx context.Context, sql string, args []interface{}) ([]Row, error)

	// Exec runs a non-row-returning statement and returns the driver's
	// command tag (for example "UPDATE 5" or "INSERT 0 3").
	Exec(ctx context.Context, sql string, args []interface{}) (string, error)

	// Begin starts a transaction on this connection.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the current transaction.
	Rollback(ctx context.Context) error

	// Ping verifies connection health.
	Ping(ctx context.Context) error

	// Close closes the connection gracefully.
	Close() error

	// RemoteAddr returns the server address this connection talks to.
	RemoteAddr() string

	// IsAlive checks if the connection is still valid.
	IsAlive() bool

	// LastActivity returns the timestamp of the last successful operation.
	LastActivity() time.Time
}

// ConnFactory creates a new physical connection. Any one-time session setup
// (timezone, value codecs) belongs in the factory so that it runs exactly
// once per physical connection, not once per borrow.
type ConnFactory func(ctx context.Context) (Conn, error)
