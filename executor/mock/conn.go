// Package mock provides scripted in-memory connections for testing the
// engine without a database.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aimanaev/pgsqlThreadsExecute/executor"
)

// Script holds the shared behavior for every connection built from it:
// canned rows, command tags, and errors keyed by statement text, plus
// aggregate instrumentation across all connections (statement history and a
// peak-concurrency gauge).
type Script struct {
	mu         sync.RWMutex
	rowsBySQL  map[string][]executor.Row
	tagBySQL   map[string]string
	errBySQL   map[string]error
	delayBySQL map[string]time.Duration
	defaultTag string

	beginErr  error
	commitErr error

	executed []string

	inFlight     atomic.Int32
	peakInFlight atomic.Int32

	beginCalls    atomic.Int32
	commitCalls   atomic.Int32
	rollbackCalls atomic.Int32
	connsBuilt    atomic.Int32
}

// NewScript creates an empty script. Unscripted queries return no rows;
// unscripted commands return the default tag "OK" (which parses to zero
// affected rows).
func NewScript() *Script {
	return &Script{
		rowsBySQL:  make(map[string][]executor.Row),
		tagBySQL:   make(map[string]string),
		errBySQL:   make(map[string]error),
		delayBySQL: make(map[string]time.Duration),
		defaultTag: "OK",
	}
}

// WithRows cans the result set for a statement.
func (s *Script) WithRows(sql string, rows []executor.Row) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowsBySQL[sql] = rows
	return s
}

// WithTag cans the command tag for a statement.
func (s *Script) WithTag(sql, tag string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagBySQL[sql] = tag
	return s
}

// WithError makes a statement fail.
func (s *Script) WithError(sql string, err error) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errBySQL[sql] = err
	return s
}

// WithDelay makes a statement sleep before completing, honoring context
// cancellation and deadlines.
func (s *Script) WithDelay(sql string, d time.Duration) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delayBySQL[sql] = d
	return s
}

// WithBeginError makes Begin fail on every connection.
func (s *Script) WithBeginError(err error) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginErr = err
	return s
}

// WithCommitError makes Commit fail on every connection.
func (s *Script) WithCommitError(err error) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
	return s
}

// Factory returns a ConnFactory producing fresh connections bound to this
// script.
func (s *Script) Factory() executor.ConnFactory {
	return func(ctx context.Context) (executor.Conn, error) {
		id := int(s.connsBuilt.Add(1))
		return &Conn{script: s, id: id, alive: true, lastActivity: time.Now()}, nil
	}
}

// Executed returns every statement text run through this script's
// connections, in completion order.
func (s *Script) Executed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.executed))
	copy(out, s.executed)
	return out
}

// PeakInFlight reports the highest number of statements that were
// simultaneously mid-execution.
func (s *Script) PeakInFlight() int {
	return int(s.peakInFlight.Load())
}

// BeginCount returns how many transactions were started.
func (s *Script) BeginCount() int { return int(s.beginCalls.Load()) }

// CommitCount returns how many transactions were committed.
func (s *Script) CommitCount() int { return int(s.commitCalls.Load()) }

// RollbackCount returns how many transactions were rolled back.
func (s *Script) RollbackCount() int { return int(s.rollbackCalls.Load()) }

// ConnsBuilt returns how many physical connections the factory produced.
func (s *Script) ConnsBuilt() int { return int(s.connsBuilt.Load()) }

func (s *Script) enter() {
	cur := s.inFlight.Add(1)
	for {
		peak := s.peakInFlight.Load()
		if cur <= peak || s.peakInFlight.CompareAndSwap(peak, cur) {
			return
		}
	}
}

func (s *Script) leave() {
	s.inFlight.Add(-1)
}

func (s *Script) record(sql string) {
	s.mu.Lock()
	s.executed = append(s.executed, sql)
	s.mu.Unlock()
}

func (s *Script) lookup(sql string) (rows []executor.Row, tag string, err error, delay time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows = s.rowsBySQL[sql]
	tag, ok := s.tagBySQL[sql]
	if !ok {
		tag = s.defaultTag
	}
	return rows, tag, s.errBySQL[sql], s.delayBySQL[sql]
}

// Conn is one scripted connection.
type Conn struct {
	script       *Script
	id           int
	alive        bool
	inTx         bool
	lastActivity time.Time
	mu           sync.RWMutex
}

// Query implements executor.Conn.
func (c *Conn) Query(ctx context.Context, sql string, args []interface{}) ([]executor.Row, error) {
	rows, _, err := c.run(ctx, sql)
	return rows, err
}

// Exec implements executor.Conn.
func (c *Conn) Exec(ctx context.Context, sql string, args []interface{}) (string, error) {
	_, tag, err := c.run(ctx, sql)
	return tag, err
}

func (c *Conn) run(ctx context.Context, sql string) ([]executor.Row, string, error) {
	rows, tag, scriptErr, delay := c.script.lookup(sql)

	c.script.enter()
	defer c.script.leave()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if scriptErr != nil {
		return nil, "", scriptErr
	}

	c.script.record(sql)
	c.touch()
	return rows, tag, nil
}

// Begin implements executor.Conn.
func (c *Conn) Begin(ctx context.Context) error {
	c.script.beginCalls.Add(1)
	c.script.mu.RLock()
	err := c.script.beginErr
	c.script.mu.RUnlock()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inTx {
		return fmt.Errorf("mock conn %d: transaction already active", c.id)
	}
	c.inTx = true
	return nil
}

// Commit implements executor.Conn.
func (c *Conn) Commit(ctx context.Context) error {
	c.script.commitCalls.Add(1)
	c.script.mu.RLock()
	err := c.script.commitErr
	c.script.mu.RUnlock()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inTx {
		return fmt.Errorf("mock conn %d: no active transaction", c.id)
	}
	c.inTx = false
	return nil
}

// Rollback implements executor.Conn.
func (c *Conn) Rollback(ctx context.Context) error {
	c.script.rollbackCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	return nil
}

// Ping implements executor.Conn.
func (c *Conn) Ping(ctx context.Context) error {
	if !c.IsAlive() {
		return fmt.Errorf("mock conn %d: closed", c.id)
	}
	return nil
}

// Close implements executor.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = false
	return nil
}

// RemoteAddr implements executor.Conn.
func (c *Conn) RemoteAddr() string {
	return fmt.Sprintf("mock://conn-%d", c.id)
}

// IsAlive implements executor.Conn.
func (c *Conn) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alive
}

// LastActivity implements executor.Conn.
func (c *Conn) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}
