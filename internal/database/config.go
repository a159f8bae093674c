// Package database holds the engine-neutral connection configuration shared
// by the per-engine pool constructors.
package database

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/refcask/refcask/internal/errs"
)

// Engine selects which driver opens the pool. Detection of the engine
// *variant* (plain vs distributed PostgreSQL family) happens later, against
// the live connection; the config only needs to know which wire protocol to
// speak.
type Engine string

const (
	EnginePostgres Engine = "postgres" // PostgreSQL and CockroachDB
	EngineMySQL    Engine = "mysql"    // MySQL and MariaDB
	EngineSQLite   Engine = "sqlite"   // embedded
)

// Config holds all settings needed to connect to and pool a database.
type Config struct {
	// Engine is the database driver family (e.g. EnginePostgres).
	Engine Engine

	// DSN is the full data source name. When set it wins over the
	// field-by-field settings below. For EngineSQLite this is the database
	// file path, or ":memory:".
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Pool tuning
	MaxConns        int           // maximum open connections
	MaxIdleConns    int           // idle connections kept alive
	MaxConnLifetime time.Duration // maximum reuse time per connection
	MaxConnIdleTime time.Duration // maximum idle time per connection

	// Timeouts
	ConnectTimeout time.Duration // limit for establishing a connection
	QueryTimeout   time.Duration // default per-statement deadline (applied by callers)
}

// PingTimeout returns the connect timeout to apply to the reachability
// check, defaulting when the config was built by hand without one.
func (c *Config) PingTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return 10 * time.Second
}

// DefaultConfig returns production-ready pool settings for the given engine
// and DSN.
func DefaultConfig(engine Engine, dsn string) *Config {
	return &Config{
		Engine:          engine,
		DSN:             dsn,
		MaxConns:        25,
		MaxIdleConns:    5,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		QueryTimeout:    30 * time.Second,
	}
}

// yamlConfig mirrors Config for decoding; durations are Go duration strings
// ("3s", "500ms"), which yaml cannot place into time.Duration directly.
type yamlConfig struct {
	Engine   string `yaml:"engine"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns        int    `yaml:"max_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxConnLifetime string `yaml:"max_conn_lifetime"`
	MaxConnIdleTime string `yaml:"max_conn_idle_time"`
	ConnectTimeout  string `yaml:"connect_timeout"`
	QueryTimeout    string `yaml:"query_timeout"`
}

// LoadConfig reads a YAML config file and fills unset pool settings with the
// DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("read config %s", path), err)
	}

	yc := &yamlConfig{}
	if err := yaml.Unmarshal(raw, yc); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("parse config %s", path), err)
	}

	cfg := &Config{
		Engine:       Engine(yc.Engine),
		DSN:          yc.DSN,
		Host:         yc.Host,
		Port:         yc.Port,
		User:         yc.User,
		Password:     yc.Password,
		Database:     yc.Database,
		SSLMode:      yc.SSLMode,
		MaxConns:     yc.MaxConns,
		MaxIdleConns: yc.MaxIdleConns,
	}
	for _, d := range []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{yc.MaxConnLifetime, "max_conn_lifetime", &cfg.MaxConnLifetime},
		{yc.MaxConnIdleTime, "max_conn_idle_time", &cfg.MaxConnIdleTime},
		{yc.ConnectTimeout, "connect_timeout", &cfg.ConnectTimeout},
		{yc.QueryTimeout, "query_timeout", &cfg.QueryTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("config: %s", d.name), err)
		}
		*d.dst = parsed
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts of the config that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Engine {
	case EnginePostgres, EngineMySQL, EngineSQLite:
	case "":
		return errs.New(errs.ErrKindInvalidInput, "config: engine is required")
	default:
		return errs.New(errs.ErrKindUnsupported, fmt.Sprintf("config: unknown engine %q", c.Engine))
	}

	if c.DSN == "" && c.Engine == EngineSQLite {
		return errs.New(errs.ErrKindInvalidInput, "config: sqlite requires a dsn (file path or :memory:)")
	}
	if c.DSN == "" && c.Host == "" {
		return errs.New(errs.ErrKindInvalidInput, "config: either dsn or host must be set")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig(cfg.Engine, cfg.DSN)
	if cfg.MaxConns == 0 {
		cfg.MaxConns = def.MaxConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = def.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = def.MaxConnIdleTime
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
}
