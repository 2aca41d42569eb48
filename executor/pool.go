package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// PoolStats tracks connection pool counters.
type PoolStats struct {
	ActiveConnections atomic.Int32
	IdleConnections   atomic.Int32
	TotalConnections  atomic.Int32
	WaitCount         atomic.Int64
	WaitDuration      atomic.Int64 // nanoseconds
	Hits              atomic.Int64
	Misses            atomic.Int64
	Timeouts          atomic.Int64
	Errors            atomic.Int64
}

// ConnectionPool manages a bounded set of live database connections. It is
// safe for concurrent Acquire/Release; a connection handed out by Acquire is
// exclusively owned by the caller until Release.
type ConnectionPool struct {
	conns          chan Conn
	factory        ConnFactory
	minIdle        int
	maxOpen        int
	acquireTimeout time.Duration
	idleTimeout    time.Duration
	log            Logger
	stats          PoolStats
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.RWMutex
	closed         bool
}

// NewConnectionPool creates a pool that keeps between minIdle and maxOpen
// connections built by factory. Acquire waits at most acquireTimeout for a
// free connection; idle connections beyond minIdle are recycled after
// idleTimeout.
func NewConnectionPool(factory ConnFactory, minIdle, maxOpen int,
	acquireTimeout, idleTimeout time.Duration, log Logger) *ConnectionPool {

	if minIdle < 0 {
		minIdle = 0
	}
	if maxOpen < 1 {
		maxOpen = 1
	}
	if minIdle > maxOpen {
		minIdle = maxOpen
	}
	if log == nil {
		log = NewNopLogger()
	}

	return &ConnectionPool{
		conns:          make(chan Conn, maxOpen),
		factory:        factory,
		minIdle:        minIdle,
		maxOpen:        maxOpen,
		acquireTimeout: acquireTimeout,
		idleTimeout:    idleTimeout,
		log:            log,
		stopCh:         make(chan struct{}),
	}
}

// Initialize pre-warms the pool with minIdle connections and starts the idle
// cleanup worker. A factory failure here is fatal: the pool cannot satisfy
// its configured minimum.
func (p *ConnectionPool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &PoolClosedError{}
	}

	for i := 0; i < p.minIdle; i++ {
		conn, err := p.factory(ctx)
		if err != nil {
			p.closeAllConnections()
			return fmt.Errorf("failed to create initial connection: %w", err)
		}
		p.conns <- conn
		p.stats.TotalConnections.Add(1)
		p.stats.IdleConnections.Add(1)
	}

	p.wg.Add(1)
	go p.cleanupWorker()

	p.log.Info("connection pool created",
		Int("min_idle", p.minIdle),
		Int("max_open", p.maxOpen),
		Duration("acquire_timeout", p.acquireTimeout))
	return nil
}

// Acquire returns an exclusively-owned connection, waiting up to the pool's
// acquire timeout. Exhaustion is a distinct error kind so callers can report
// it without guessing from message text.
func (p *ConnectionPool) Acquire(ctx context.Context) (Conn, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, &PoolClosedError{}
	}
	p.mu.RUnlock()

	startWait := time.Now()
	p.stats.WaitCount.Add(1)

	deadline := time.NewTimer(p.acquireTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			p.stats.Timeouts.Add(1)
			return nil, &PoolExhaustedError{Timeout: p.acquireTimeout, Cause: ctx.Err()}

		case <-deadline.C:
			p.stats.Timeouts.Add(1)
			return nil, &PoolExhaustedError{Timeout: p.acquireTimeout}

		case conn := <-p.conns:
			p.stats.IdleConnections.Add(-1)
			// Discard dead connections and keep waiting for a live one.
			if !conn.IsAlive() {
				p.stats.TotalConnections.Add(-1)
				conn.Close()
				continue
			}
			p.stats.WaitDuration.Add(int64(time.Since(startWait)))
			p.stats.Hits.Add(1)
			p.stats.ActiveConnections.Add(1)
			return conn, nil

		default:
			if !p.tryReserveSlot() {
				// At capacity: block until a connection frees up or the
				// acquire timeout fires.
				select {
				case <-ctx.Done():
					p.stats.Timeouts.Add(1)
					return nil, &PoolExhaustedError{Timeout: p.acquireTimeout, Cause: ctx.Err()}
				case <-deadline.C:
					p.stats.Timeouts.Add(1)
					return nil, &PoolExhaustedError{Timeout: p.acquireTimeout}
				case conn := <-p.conns:
					p.stats.IdleConnections.Add(-1)
					if !conn.IsAlive() {
						p.stats.TotalConnections.Add(-1)
						conn.Close()
						continue
					}
					p.stats.WaitDuration.Add(int64(time.Since(startWait)))
					p.stats.Hits.Add(1)
					p.stats.ActiveConnections.Add(1)
					return conn, nil
				}
			}

			conn, err := p.factory(ctx)
			if err != nil {
				p.releaseSlot()
				p.stats.Errors.Add(1)
				return nil, fmt.Errorf("failed to create new connection: %w", err)
			}
			p.stats.WaitDuration.Add(int64(time.Since(startWait)))
			p.stats.Misses.Add(1)
			p.stats.ActiveConnections.Add(1)
			return conn, nil
		}
	}
}

// tryReserveSlot atomically claims a slot under maxOpen for a new physical
// connection.
func (p *ConnectionPool) tryReserveSlot() bool {
	for {
		total := p.stats.TotalConnections.Load()
		if total >= int32(p.maxOpen) {
			return false
		}
		if p.stats.TotalConnections.CompareAndSwap(total, total+1) {
			return true
		}
	}
}

func (p *ConnectionPool) releaseSlot() {
	p.stats.TotalConnections.Add(-1)
}

// Release returns a connection to the pool. Dead connections and connections
// beyond capacity are closed instead.
func (p *ConnectionPool) Release(conn Conn) {
	if conn == nil {
		return
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		conn.Close()
		return
	}

	p.stats.ActiveConnections.Add(-1)

	if !conn.IsAlive() {
		p.stats.TotalConnections.Add(-1)
		conn.Close()
		return
	}

	select {
	case p.conns <- conn:
		p.stats.IdleConnections.Add(1)
	default:
		p.stats.TotalConnections.Add(-1)
		conn.Close()
	}
}

// Stats returns a snapshot of pool counters.
func (p *ConnectionPool) Stats() PoolStats {
	stats := PoolStats{}
	stats.ActiveConnections.Store(p.stats.ActiveConnections.Load())
	stats.IdleConnections.Store(p.stats.IdleConnections.Load())
	stats.TotalConnections.Store(p.stats.TotalConnections.Load())
	stats.WaitCount.Store(p.stats.WaitCount.Load())
	stats.WaitDuration.Store(p.stats.WaitDuration.Load())
	stats.Hits.Store(p.stats.Hits.Load())
	stats.Misses.Store(p.stats.Misses.Load())
	stats.Timeouts.Store(p.stats.Timeouts.Load())
	stats.Errors.Store(p.stats.Errors.Load())
	return stats
}

// Close drains and terminates all pooled connections. Idempotent.
func (p *ConnectionPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	p.closeAllConnections()

	p.log.Info("connection pool closed")
	return nil
}

// cleanupWorker periodically recycles idle connections beyond minIdle that
// have been inactive longer than idleTimeout.
func (p *ConnectionPool) cleanupWorker() {
	defer p.wg.Done()

	interval := p.idleTimeout / 4
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.cleanupIdleConnections()
		}
	}
}

func (p *ConnectionPool) cleanupIdleConnections() {
	now := time.Now()
	currentIdle := int(p.stats.IdleConnections.Load())

	for currentIdle > p.minIdle {
		select {
		case conn := <-p.conns:
			if now.Sub(conn.LastActivity()) > p.idleTimeout {
				p.stats.IdleConnections.Add(-1)
				p.stats.TotalConnections.Add(-1)
				conn.Close()
				currentIdle--
			} else {
				// Still fresh; connections behind it are at least as fresh.
				p.conns <- conn
				return
			}
		default:
			return
		}
	}
}

func (p *ConnectionPool) closeAllConnections() {
	for {
		select {
		case conn := <-p.conns:
			conn.Close()
		default:
			return
		}
	}
}
