// Package config loads connection settings and the statement batch from the
// environment and declarative files. It only produces the engine's inputs;
// execution logic lives in the executor package.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/aimanaev/pgsqlThreadsExecute/executor"
)

// Settings holds every plain configuration value the engine and its backend
// need. Values come from environment variables (the deployment's historical
// names) with an optional config file layered underneath.
type Settings struct {
	Host     string `mapstructure:"database_host"`
	Port     int    `mapstructure:"database_port"`
	Database string `mapstructure:"database_db"`
	User     string `mapstructure:"database_user"`
	Password string `mapstructure:"database_password"`
	SSLMode  string `mapstructure:"database_sslmode"`

	ConnectionsMin int `mapstructure:"database_connections_min"`
	ConnectionsMax int `mapstructure:"database_connections_max"`

	// ConnectionTimeoutSeconds bounds waiting for a pooled connection.
	ConnectionTimeoutSeconds int `mapstructure:"database_connection_timeout"`
	// CommandTimeoutSeconds is the default per-statement timeout.
	CommandTimeoutSeconds int `mapstructure:"database_command_timeout"`
	// ConcurrentMax caps simultaneously executing statements (0 = pool max).
	ConcurrentMax int `mapstructure:"async_concurrent_max"`
}

// Load reads settings from the environment, layered over the optional config
// file at path (YAML; pass "" to skip).
func Load(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", 5432)
	v.SetDefault("database_sslmode", "disable")
	v.SetDefault("database_connections_min", 1)
	v.SetDefault("database_connections_max", 10)
	v.SetDefault("database_connection_timeout", 10)
	v.SetDefault("database_command_timeout", 30)
	v.SetDefault("async_concurrent_max", 0)

	for _, key := range []string{
		"database_host", "database_port", "database_db", "database_user",
		"database_password", "database_sslmode",
		"database_connections_min", "database_connections_max",
		"database_connection_timeout", "database_command_timeout",
		"async_concurrent_max",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &s, nil
}

// Validate reports every missing required value at once, before anything
// connects.
func (s *Settings) Validate() error {
	var missing []string
	if s.User == "" {
		missing = append(missing, "DATABASE_USER")
	}
	if s.Password == "" {
		missing = append(missing, "DATABASE_PASSWORD")
	}
	if s.Database == "" {
		missing = append(missing, "DATABASE_DB")
	}
	if len(missing) > 0 {
		return &executor.ConfigError{
			Message: "required connection parameters are not set",
			Missing: missing,
		}
	}
	if s.ConnectionsMax < 1 {
		return &executor.ConfigError{Message: "DATABASE_CONNECTIONS_MAX must be at least 1"}
	}
	return nil
}

// DSN builds the lib/pq connection URL.
func (s *Settings) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   s.Addr(),
		Path:   "/" + s.Database,
	}
	q := url.Values{}
	q.Set("sslmode", s.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port pair, used as the loggable connection label.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineOptions converts settings into executor options.
func (s *Settings) EngineOptions(log executor.Logger) executor.Options {
	opts := executor.DefaultOptions()
	opts.PoolMinSize = s.ConnectionsMin
	opts.PoolMaxSize = s.ConnectionsMax
	opts.AcquireTimeout = time.Duration(s.ConnectionTimeoutSeconds) * time.Second
	opts.CommandTimeout = time.Duration(s.CommandTimeoutSeconds) * time.Second
	opts.MaxConcurrent = s.ConcurrentMax
	opts.Logger = log
	return opts
}
