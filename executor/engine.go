package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Engine is the concurrent batch execution engine. It owns a connection pool
// and runs named statement batches in one of two modes: bounded-concurrency
// independent execution, or sequential execution inside one transaction.
type Engine struct {
	pool *ConnectionPool
	sem  *semaphore.Weighted
	opts Options
	log  Logger
}

// New creates an engine over connections built by factory. Option problems
// are reported here, before anything executes.
func New(factory ConnFactory, opts Options) (*Engine, error) {
	if factory == nil {
		return nil, &ConfigError{Message: "connection factory must not be nil"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	pool := NewConnectionPool(factory,
		opts.PoolMinSize, opts.PoolMaxSize,
		opts.AcquireTimeout, opts.PoolIdleTimeout,
		opts.Logger)

	return &Engine{
		pool: pool,
		sem:  semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts: opts,
		log:  opts.Logger,
	}, nil
}

// Initialize warms the connection pool. A failure here is fatal and no
// statement has run.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.pool.Initialize(ctx)
}

// Pool exposes the engine's connection pool, mainly for stats inspection.
func (e *Engine) Pool() *ConnectionPool {
	return e.pool
}

// Close shuts down the connection pool. Idempotent.
func (e *Engine) Close(ctx context.Context) error {
	return e.pool.Close(ctx)
}

// RunConcurrent executes every statement in the batch as an independent unit
// across the pool, with at most Options.MaxConcurrent units mid-flight at
// once. One statement's failure never affects its siblings; the report
// carries exactly one result per submitted statement, in submission order
// regardless of completion order.
//
// An empty batch is not an error: the report comes back as 0/0.
func (e *Engine) RunConcurrent(ctx context.Context, batch *Batch) (*BatchReport, error) {
	runID := uuid.New().String()
	specs := batch.Specs()

	if len(specs) == 0 {
		e.log.Warn("no statements to execute", String("run_id", runID))
		return buildReport(runID, nil), nil
	}

	e.log.Info("starting concurrent batch",
		String("run_id", runID),
		Int("statements", len(specs)),
		Int("max_concurrent", e.opts.MaxConcurrent))

	// Results are written into a pre-sized slice indexed by submission
	// position, so completion order never matters and no locking is needed:
	// each unit owns exactly one slot.
	results := make([]*ExecutionResult, len(specs))
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec StatementSpec) {
			defer wg.Done()
			// The executor converts its own failures into results; this
			// recover is the last line of defense so a unit can never take
			// the batch down without leaving a result behind.
			defer func() {
				if r := recover(); r != nil {
					results[i] = failedResult(spec.Name,
						fmt.Sprintf("panic during execution: %v", r))
					e.log.Error("statement unit panicked",
						String("run_id", runID),
						String("statement", spec.Name),
						String("panic", fmt.Sprintf("%v", r)))
				}
			}()
			results[i] = e.runOne(ctx, spec)
		}(i, spec)
	}
	wg.Wait()

	report := buildReport(runID, results)
	report.Log(e.log)
	return report, nil
}

// runOne admits one unit through the semaphore, borrows a connection,
// executes, and releases both. Every failure becomes a finalized result.
func (e *Engine) runOne(ctx context.Context, spec StatementSpec) *ExecutionResult {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return failedResult(spec.Name, fmt.Sprintf("admission canceled: %s", err))
	}
	defer e.sem.Release(1)

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return failedResult(spec.Name, err.Error())
	}
	defer e.pool.Release(conn)

	return executeStatement(ctx, conn, spec, execOptions{
		defaultTimeout: e.opts.CommandTimeout,
		implicitTx:     true,
	}, e.log)
}

// RunTransaction executes the batch sequentially on one connection inside a
// single transaction. The first failure rolls everything back and stops
// execution; statements after the failure are reported as not attempted.
// This mode never partially commits.
func (e *Engine) RunTransaction(ctx context.Context, batch *Batch) (*BatchReport, error) {
	runID := uuid.New().String()
	specs := batch.Specs()

	if len(specs) == 0 {
		e.log.Warn("no statements to execute", String("run_id", runID))
		return buildReport(runID, nil), nil
	}

	e.log.Info("starting transaction batch",
		String("run_id", runID),
		Int("statements", len(specs)))

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(conn)

	if err := conn.Begin(ctx); err != nil {
		return nil, &TransactionAbortedError{Statement: specs[0].Name, Cause: err}
	}

	results := make([]*ExecutionResult, len(specs))
	var terminal *TransactionAbortedError

	for i, spec := range specs {
		res := executeStatement(ctx, conn, spec, execOptions{
			defaultTimeout: e.opts.CommandTimeout,
			implicitTx:     false,
		}, e.log)
		results[i] = res

		if !res.Succeeded {
			terminal = &TransactionAbortedError{
				Statement: spec.Name,
				Cause:     errors.New(res.Error),
			}
			if rbErr := conn.Rollback(ctx); rbErr != nil {
				e.log.Warn("rollback failed",
					String("run_id", runID),
					String("statement", spec.Name),
					Err("error", rbErr))
			}
			// Exactly one result per submitted statement: the statements
			// after the failure were never attempted.
			for j := i + 1; j < len(specs); j++ {
				results[j] = failedResult(specs[j].Name,
					fmt.Sprintf("not attempted: transaction aborted by %q", spec.Name))
			}
			break
		}
	}

	if terminal == nil {
		if err := conn.Commit(ctx); err != nil {
			terminal = &TransactionAbortedError{
				Statement: specs[len(specs)-1].Name,
				Cause:     fmt.Errorf("commit failed: %w", err),
			}
			if rbErr := conn.Rollback(ctx); rbErr != nil {
				e.log.Warn("rollback failed after commit error",
					String("run_id", runID), Err("error", rbErr))
			}
		}
	}

	report := buildReport(runID, results)
	report.Log(e.log)

	if terminal != nil {
		return report, terminal
	}
	return report, nil
}
