package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// poolConn implements Conn for pool tests.
type poolConn struct {
	id           int
	alive        bool
	lastActivity time.Time
	mu           sync.RWMutex
}

func newPoolConn(id int) *poolConn {
	return &poolConn{id: id, alive: true, lastActivity: time.Now()}
}

func (m *poolConn) Query(ctx context.Context, sql string, args []interface{}) ([]Row, error) {
	return nil, nil
}

func (m *poolConn) Exec(ctx context.Context, sql string, args []interface{}) (string, error) {
	return "OK", nil
}

func (m *poolConn) Begin(ctx context.Context) error    { return nil }
func (m *poolConn) Commit(ctx context.Context) error   { return nil }
func (m *poolConn) Rollback(ctx context.Context) error { return nil }
func (m *poolConn) Ping(ctx context.Context) error     { return nil }

func (m *poolConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = false
	return nil
}

func (m *poolConn) RemoteAddr() string {
	return fmt.Sprintf("mock://conn-%d", m.id)
}

func (m *poolConn) IsAlive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alive
}

func (m *poolConn) LastActivity() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastActivity
}

func countingFactory() ConnFactory {
	var connID atomic.Int32
	return func(ctx context.Context) (Conn, error) {
		return newPoolConn(int(connID.Add(1))), nil
	}
}

func TestPoolInitialization(t *testing.T) {
	pool := NewConnectionPool(countingFactory(), 2, 5, time.Second, 30*time.Second, NewNopLogger())
	require.NotNil(t, pool)

	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))

	stats := pool.Stats()
	assert.GreaterOrEqual(t, stats.IdleConnections.Load(), int32(2))

	require.NoError(t, pool.Close(ctx))
}

func TestPoolAcquireRelease(t *testing.T) {
	pool := NewConnectionPool(countingFactory(), 1, 3, time.Second, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))
	defer pool.Close(ctx)

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, conn)

	stats := pool.Stats()
	assert.Equal(t, int32(1), stats.ActiveConnections.Load())

	pool.Release(conn)

	stats = pool.Stats()
	assert.Equal(t, int32(0), stats.ActiveConnections.Load())
	assert.GreaterOrEqual(t, stats.IdleConnections.Load(), int32(1))
}

func TestPoolConcurrentAccess(t *testing.T) {
	pool := NewConnectionPool(countingFactory(), 2, 10, 5*time.Second, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))
	defer pool.Close(ctx)

	const numGoroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := pool.Acquire(ctx)
			if err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
			pool.Release(conn)
			successCount.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(numGoroutines), successCount.Load())

	stats := pool.Stats()
	assert.Equal(t, int32(0), stats.ActiveConnections.Load(), "connections leaked")
	assert.LessOrEqual(t, stats.TotalConnections.Load(), int32(10))
}

func TestPoolExhaustion(t *testing.T) {
	const maxOpen = 3
	pool := NewConnectionPool(countingFactory(), 1, maxOpen, 100*time.Millisecond, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))
	defer pool.Close(ctx)

	conns := make([]Conn, maxOpen)
	for i := 0; i < maxOpen; i++ {
		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		conns[i] = conn
	}

	// Pool is at capacity: the next acquire must fail with the distinct
	// exhaustion error kind, not a generic timeout.
	_, err := pool.Acquire(ctx)
	require.Error(t, err)

	var exhausted *PoolExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 100*time.Millisecond, exhausted.Timeout)

	stats := pool.Stats()
	assert.Greater(t, stats.Timeouts.Load(), int64(0))

	for _, conn := range conns {
		pool.Release(conn)
	}
}

func TestPoolDiscardsDeadConnections(t *testing.T) {
	pool := NewConnectionPool(countingFactory(), 1, 3, time.Second, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))
	defer pool.Close(ctx)

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)

	// Kill it behind the pool's back, then hand it back.
	conn.Close()
	pool.Release(conn)

	stats := pool.Stats()
	assert.Equal(t, int32(0), stats.IdleConnections.Load())

	// A fresh connection is built on the next acquire.
	conn2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, conn2.IsAlive())
	pool.Release(conn2)
}

func TestPoolClose(t *testing.T) {
	pool := NewConnectionPool(countingFactory(), 2, 5, time.Second, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(conn)

	require.NoError(t, pool.Close(ctx))

	_, err = pool.Acquire(ctx)
	require.Error(t, err)

	var closed *PoolClosedError
	assert.ErrorAs(t, err, &closed)

	// Double close is safe.
	assert.NoError(t, pool.Close(ctx))
}

func TestPoolInitializeFactoryError(t *testing.T) {
	factoryErr := errors.New("connection creation failed")
	factory := func(ctx context.Context) (Conn, error) {
		return nil, factoryErr
	}

	pool := NewConnectionPool(factory, 1, 3, time.Second, 30*time.Second, NewNopLogger())
	err := pool.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, factoryErr)
}

func TestPoolAcquireFactoryError(t *testing.T) {
	factoryErr := errors.New("connection creation failed")
	factory := func(ctx context.Context) (Conn, error) {
		return nil, factoryErr
	}

	// minIdle 0 so Initialize succeeds and the factory fails lazily.
	pool := NewConnectionPool(factory, 0, 3, time.Second, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))
	defer pool.Close(ctx)

	_, err := pool.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, factoryErr)

	stats := pool.Stats()
	assert.Greater(t, stats.Errors.Load(), int64(0))
	// The reserved capacity slot must be given back on failure.
	assert.Equal(t, int32(0), stats.TotalConnections.Load())
}

func TestPoolBoundsNormalization(t *testing.T) {
	pool := NewConnectionPool(countingFactory(), 5, 2, time.Second, 30*time.Second, NewNopLogger())
	ctx := context.Background()
	require.NoError(t, pool.Initialize(ctx))
	defer pool.Close(ctx)

	// minIdle was clamped down to maxOpen.
	stats := pool.Stats()
	assert.Equal(t, int32(2), stats.TotalConnections.Load())
}
