package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidateDefaults(t *testing.T) {
	opts := Options{PoolMaxSize: 4}
	require.NoError(t, opts.validate())

	assert.Equal(t, 4, opts.MaxConcurrent, "zero concurrency falls back to pool max")
	assert.Equal(t, 10*time.Second, opts.AcquireTimeout)
	assert.Equal(t, 30*time.Second, opts.CommandTimeout)
	assert.Equal(t, 5*time.Minute, opts.PoolIdleTimeout)
	assert.NotNil(t, opts.Logger)
}

func TestOptionsValidateClampsMinToMax(t *testing.T) {
	opts := Options{PoolMinSize: 9, PoolMaxSize: 3}
	require.NoError(t, opts.validate())
	assert.Equal(t, 3, opts.PoolMinSize)
}

func TestOptionsValidateRejectsBadValues(t *testing.T) {
	var cfgErr *ConfigError

	bad := Options{PoolMaxSize: 0}
	assert.ErrorAs(t, bad.validate(), &cfgErr)

	negative := Options{PoolMaxSize: 5, MaxConcurrent: -1}
	assert.ErrorAs(t, negative.validate(), &cfgErr)
}

func TestOptionsValidateKeepsExplicitValues(t *testing.T) {
	opts := Options{
		PoolMinSize:    2,
		PoolMaxSize:    8,
		AcquireTimeout: time.Second,
		CommandTimeout: 2 * time.Second,
		MaxConcurrent:  3,
		Logger:         NewNopLogger(),
	}
	require.NoError(t, opts.validate())

	assert.Equal(t, 3, opts.MaxConcurrent)
	assert.Equal(t, time.Second, opts.AcquireTimeout)
	assert.Equal(t, 2*time.Second, opts.CommandTimeout)
}
