// Package postgres is the production connection backend, built on lib/pq
// through sqlx. One Conn wraps one physical database connection.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/aimanaev/pgsqlThreadsExecute/executor"
	"github.com/aimanaev/pgsqlThreadsExecute/mapper"
)

// Conn is a single physical Postgres connection implementing executor.Conn.
// The embedded sqlx.DB is pinned to exactly one underlying connection so the
// pool above it controls concurrency, not database/sql.
type Conn struct {
	db           *sqlx.DB
	tx           *sqlx.Tx
	remoteAddr   string
	alive        bool
	lastActivity time.Time
	mu           sync.RWMutex
}

// NewFactory builds an executor.ConnFactory that dials dsn. addr is the
// host:port label reported by RemoteAddr (the DSN itself carries
// credentials and is never logged).
func NewFactory(dsn, addr string) executor.ConnFactory {
	return func(ctx context.Context) (executor.Conn, error) {
		return newConn(ctx, dsn, addr)
	}
}

func newConn(ctx context.Context, dsn, addr string) (*Conn, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection to %s: %w", addr, err)
	}

	// Pin to one physical connection; pooling happens a layer up.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	// One-time session setup per physical connection, never per borrow.
	if _, err := db.ExecContext(ctx, "SET TIME ZONE 'UTC'"); err != nil {
		db.Close()
		return nil, fmt.Errorf("session setup on %s: %w", addr, err)
	}

	return &Conn{
		db:           db,
		remoteAddr:   addr,
		alive:        true,
		lastActivity: time.Now(),
	}, nil
}

// Query runs a row-returning statement and materializes every row into a
// name to value mapping with normalized values.
func (c *Conn) Query(ctx context.Context, query string, args []interface{}) ([]executor.Row, error) {
	rows, err := c.queryer().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	dbTypes := make(map[string]string, len(colTypes))
	for _, ct := range colTypes {
		dbTypes[ct.Name()] = ct.DatabaseTypeName()
	}

	var out []executor.Row
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, mapper.NormalizeRow(row, dbTypes))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.touch()
	return out, nil
}

// Exec runs a command and returns its command tag. database/sql does not
// expose the wire-level tag, so it is rebuilt from the statement verb and
// the driver-reported affected-row count, following the Postgres convention
// ("INSERT 0 3", "UPDATE 5").
func (c *Conn) Exec(ctx context.Context, query string, args []interface{}) (string, error) {
	res, err := c.execer().ExecContext(ctx, query, args...)
	if err != nil {
		return "", err
	}

	c.touch()

	verb := commandVerb(query)
	affected, err := res.RowsAffected()
	if err != nil {
		// Some commands (DDL) report no count; the tag parser maps a bare
		// verb to zero affected rows.
		return verb, nil
	}
	return buildCommandTag(verb, affected), nil
}

// Begin starts a transaction on this connection.
func (c *Conn) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return fmt.Errorf("transaction already active on %s", c.remoteAddr)
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	c.lastActivity = time.Now()
	return nil
}

// Commit commits the active transaction.
func (c *Conn) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return fmt.Errorf("no active transaction on %s", c.remoteAddr)
	}
	err := c.tx.Commit()
	c.tx = nil
	c.lastActivity = time.Now()
	return err
}

// Rollback aborts the active transaction.
func (c *Conn) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return fmt.Errorf("no active transaction on %s", c.remoteAddr)
	}
	err := c.tx.Rollback()
	c.tx = nil
	c.lastActivity = time.Now()
	return err
}

// Ping verifies connection health.
func (c *Conn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return nil
	}
	c.alive = false
	if c.tx != nil {
		c.tx.Rollback()
		c.tx = nil
	}
	return c.db.Close()
}

// RemoteAddr returns the host:port this connection talks to.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// IsAlive checks if the connection is still valid.
func (c *Conn) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alive
}

// LastActivity returns the timestamp of the last successful operation.
func (c *Conn) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// queryer routes reads through the active transaction when one exists.
func (c *Conn) queryer() sqlx.QueryerContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// execer routes writes through the active transaction when one exists.
func (c *Conn) execer() sqlx.ExecerContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// commandVerb extracts the leading SQL keyword, upper-cased.
func commandVerb(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// buildCommandTag reconstructs the Postgres command tag convention.
func buildCommandTag(verb string, affected int64) string {
	if verb == "INSERT" {
		// INSERT tags carry a legacy OID field: "INSERT <oid> <count>".
		return fmt.Sprintf("INSERT 0 %d", affected)
	}
	return fmt.Sprintf("%s %d", verb, affected)
}
