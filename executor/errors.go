package executor

import (
	"fmt"
	"strings"
	"time"
)

// Errors here cover conditions that invalidate a whole run or terminate a
// transaction batch. Failures intrinsic to one statement never surface as
// Go errors; they are converted into the statement's ExecutionResult.

// ConfigError reports invalid or missing engine configuration. It is raised
// before any statement runs.
type ConfigError struct {
	Message string
	Missing []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("E_CONFIG: %s (missing: %s)", e.Message, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("E_CONFIG: %s", e.Message)
}

// PoolExhaustedError reports that no connection became available within the
// acquire timeout. The affected statement does not execute.
type PoolExhaustedError struct {
	Timeout time.Duration
	Cause   error
}

// Error implements the error interface.
func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("E_POOL_EXHAUSTED: no connection available within %s", e.Timeout)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *PoolExhaustedError) Unwrap() error {
	return e.Cause
}

// PoolClosedError reports an operation against a pool that has been closed.
type PoolClosedError struct{}

// Error implements the error interface.
func (e *PoolClosedError) Error() string {
	return "E_POOL_CLOSED: connection pool is closed"
}

// TransactionAbortedError is the terminal condition of a single-transaction
// batch: one statement failed, the transaction was rolled back and the
// remaining statements were not attempted.
type TransactionAbortedError struct {
	Statement string
	Cause     error
}

// Error implements the error interface.
func (e *TransactionAbortedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("E_TX_ABORTED: transaction aborted at statement %q (caused by: %s)",
			e.Statement, e.Cause.Error())
	}
	return fmt.Sprintf("E_TX_ABORTED: transaction aborted at statement %q", e.Statement)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *TransactionAbortedError) Unwrap() error {
	return e.Cause
}
