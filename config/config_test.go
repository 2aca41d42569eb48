package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimanaev/pgsqlThreadsExecute/executor"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_USER", "app")
	t.Setenv("DATABASE_PASSWORD", "secret")
	t.Setenv("DATABASE_DB", "appdb")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PORT", "6432")
	t.Setenv("DATABASE_CONNECTIONS_MIN", "3")
	t.Setenv("DATABASE_CONNECTIONS_MAX", "20")
	t.Setenv("DATABASE_CONNECTION_TIMEOUT", "5")
	t.Setenv("DATABASE_COMMAND_TIMEOUT", "60")
	t.Setenv("ASYNC_CONCURRENT_MAX", "8")

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", s.Host)
	assert.Equal(t, 6432, s.Port)
	assert.Equal(t, "appdb", s.Database)
	assert.Equal(t, "app", s.User)
	assert.Equal(t, "secret", s.Password)
	assert.Equal(t, 3, s.ConnectionsMin)
	assert.Equal(t, 20, s.ConnectionsMax)
	assert.Equal(t, 5, s.ConnectionTimeoutSeconds)
	assert.Equal(t, 60, s.CommandTimeoutSeconds)
	assert.Equal(t, 8, s.ConcurrentMax)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", s.Host)
	assert.Equal(t, 5432, s.Port)
	assert.Equal(t, "disable", s.SSLMode)
	assert.Equal(t, 1, s.ConnectionsMin)
	assert.Equal(t, 10, s.ConnectionsMax)
	assert.Equal(t, 10, s.ConnectionTimeoutSeconds)
	assert.Equal(t, 30, s.CommandTimeoutSeconds)
	assert.Equal(t, 0, s.ConcurrentMax)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/settings.yml")
	assert.Error(t, err)
}

func TestValidateReportsAllMissing(t *testing.T) {
	s := &Settings{ConnectionsMax: 10}

	err := s.Validate()
	require.Error(t, err)

	var cfgErr *executor.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ElementsMatch(t,
		[]string{"DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_DB"},
		cfgErr.Missing)
}

func TestValidateRejectsZeroMaxConnections(t *testing.T) {
	s := &Settings{User: "u", Password: "p", Database: "d", ConnectionsMax: 0}

	var cfgErr *executor.ConfigError
	assert.ErrorAs(t, s.Validate(), &cfgErr)
}

func TestValidateOK(t *testing.T) {
	s := &Settings{User: "u", Password: "p", Database: "d", ConnectionsMax: 10}
	assert.NoError(t, s.Validate())
}

func TestDSN(t *testing.T) {
	s := &Settings{
		Host:     "db.internal",
		Port:     6432,
		Database: "appdb",
		User:     "app",
		Password: "p@ss:word",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"postgres://app:p%40ss:word@db.internal:6432/appdb?sslmode=require",
		s.DSN())
	assert.Equal(t, "db.internal:6432", s.Addr())
}

func TestEngineOptions(t *testing.T) {
	s := &Settings{
		ConnectionsMin:           2,
		ConnectionsMax:           15,
		ConnectionTimeoutSeconds: 7,
		CommandTimeoutSeconds:    45,
		ConcurrentMax:            4,
	}
	log := executor.NewNopLogger()

	opts := s.EngineOptions(log)

	assert.Equal(t, 2, opts.PoolMinSize)
	assert.Equal(t, 15, opts.PoolMaxSize)
	assert.Equal(t, 7*time.Second, opts.AcquireTimeout)
	assert.Equal(t, 45*time.Second, opts.CommandTimeout)
	assert.Equal(t, 4, opts.MaxConcurrent)
	assert.Equal(t, log, opts.Logger)
}
