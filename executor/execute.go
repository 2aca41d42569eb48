package executor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// execOptions controls how a single statement runs.
type execOptions struct {
	// defaultTimeout applies when the statement carries no override.
	defaultTimeout time.Duration
	// implicitTx wraps commands in their own BEGIN/COMMIT. Disabled when the
	// caller already owns a transaction on the connection.
	implicitTx bool
}

// executeStatement runs one statement on an exclusively-owned connection and
// returns a fully finalized result. It never returns an error and never lets
// a failure escape: every outcome, including a timeout, becomes a populated
// ExecutionResult.
func executeStatement(ctx context.Context, conn Conn, spec StatementSpec,
	opts execOptions, log Logger) *ExecutionResult {

	result := newResult(spec.Name)

	timeout := opts.defaultTimeout
	if spec.TimeoutSeconds > 0 {
		timeout = time.Duration(spec.TimeoutSeconds) * time.Second
	}

	log.Info("statement execution started",
		String("statement", spec.Name),
		String("fingerprint", Fingerprint(spec.SQL)),
		Duration("timeout", timeout))

	// Finalization is unconditional: timestamps and duration are stamped on
	// every exit path before the end-of-execution log line.
	defer func() {
		result.finalize()
		fields := []Field{
			String("statement", spec.Name),
			Bool("succeeded", result.Succeeded),
			Float64("duration_seconds", result.DurationSeconds),
			Int64("rows", result.RowsAffected),
		}
		if result.Error != "" {
			fields = append(fields, String("error", result.Error))
		}
		if result.Succeeded {
			log.Info("statement execution finished", fields...)
		} else {
			log.Error("statement execution finished", fields...)
		}
	}()

	execCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	switch Classify(spec.SQL) {
	case KindRowReturning:
		rows, err := conn.Query(execCtx, spec.SQL, spec.Params)
		if err != nil {
			result.fail(executionErrorMessage(execCtx, err, timeout))
			return result
		}
		result.Rows = rows
		result.RowsAffected = int64(len(rows))

	default:
		tag, err := runCommand(execCtx, conn, spec, opts.implicitTx)
		if err != nil {
			result.fail(executionErrorMessage(execCtx, err, timeout))
			return result
		}
		result.RowsAffected = ParseCommandTag(tag)
	}

	result.Succeeded = true
	return result
}

// runCommand executes a non-row-returning statement, inside its own
// transaction scope when implicitTx is set.
func runCommand(ctx context.Context, conn Conn, spec StatementSpec, implicitTx bool) (string, error) {
	if !implicitTx {
		return conn.Exec(ctx, spec.SQL, spec.Params)
	}

	if err := conn.Begin(ctx); err != nil {
		return "", err
	}
	tag, err := conn.Exec(ctx, spec.SQL, spec.Params)
	if err != nil {
		// Best effort: the connection is returned to the pool either way.
		conn.Rollback(ctx)
		return "", err
	}
	if err := conn.Commit(ctx); err != nil {
		return "", err
	}
	return tag, nil
}

// executionErrorMessage converts a driver or context error into the result's
// failure text. Timeouts name the effective timeout that was applied.
func executionErrorMessage(ctx context.Context, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("statement execution timed out after %s", timeout)
	}
	return err.Error()
}
