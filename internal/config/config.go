// Package config loads critpath settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joshharrison/critpath/internal/cpm"
)

// EnvPrefix is prepended to every environment override, e.g.
// CRITPATH_ENGINE_MAX_ITERATIONS.
const EnvPrefix = "CRITPATH"

// FileName is the config file base name searched for without extension.
const FileName = "critpath"

// Config holds all critpath settings.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Input    InputConfig    `mapstructure:"input"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Output   OutputConfig   `mapstructure:"output"`
}

// EngineConfig tunes the scheduler.
type EngineConfig struct {
	// MaxIterations caps each relaxation pass loop
	MaxIterations int `mapstructure:"max_iterations"`
	// AllowCycles schedules cyclic projects with the bounded relaxation
	// instead of reporting them without dates
	AllowCycles bool `mapstructure:"allow_cycles"`
	// Workers is the number of projects analysed concurrently (0 = GOMAXPROCS)
	Workers int `mapstructure:"workers"`
}

// InputConfig selects task snapshot files.
type InputConfig struct {
	// Paths are file paths or doublestar globs
	Paths []string `mapstructure:"paths"`
	// JSONPath selects the task array inside a JSON document (gjson syntax)
	JSONPath string `mapstructure:"json_path"`
}

// DatabaseConfig reads tasks from a SQL database instead of files.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Query  string `mapstructure:"query"`
}

// Enabled reports whether a database source is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls `critpath serve`.
type ServerConfig struct {
	Addr                   string `mapstructure:"addr"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	// MaxBodyBytes bounds request bodies
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// ReadTimeout returns the read timeout as a time.Duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown window.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	JSON bool `mapstructure:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxIterations: cpm.DefaultMaxIterations,
			AllowCycles:   false,
			Workers:       0,
		},
		Input: InputConfig{
			Paths:    []string{},
			JSONPath: "",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			Query:  DefaultQuery,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     10,
			ShutdownTimeoutSeconds: 5,
			MaxBodyBytes:           10 << 20, // 10MB
		},
		Output: OutputConfig{
			JSON: false,
		},
	}
}

// DefaultQuery reads the tasks table laid out by the default schema.
const DefaultQuery = `SELECT id, name, project_id, start_date, end_date, duration_days,
predecessor_ids, lag_days, assigned_resources, status, baseline_start, baseline_end
FROM tasks ORDER BY rowid`

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("engine.max_iterations", defaults.Engine.MaxIterations)
	v.SetDefault("engine.allow_cycles", defaults.Engine.AllowCycles)
	v.SetDefault("engine.workers", defaults.Engine.Workers)

	v.SetDefault("input.paths", defaults.Input.Paths)
	v.SetDefault("input.json_path", defaults.Input.JSONPath)

	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.dsn", defaults.Database.DSN)
	v.SetDefault("database.query", defaults.Database.Query)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.read_timeout_seconds", defaults.Server.ReadTimeoutSeconds)
	v.SetDefault("server.shutdown_timeout_seconds", defaults.Server.ShutdownTimeoutSeconds)
	v.SetDefault("server.max_body_bytes", defaults.Server.MaxBodyBytes)

	v.SetDefault("output.json", defaults.Output.JSON)
}

// New returns a viper instance with defaults registered, environment
// overrides enabled and the config file search path set. An explicit
// configFile replaces the search.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}
	return v
}

// Read loads the config file into v. A missing file is not an error unless
// it was named explicitly.
func Read(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// CPM returns the calculator settings.
func (c *Config) CPM() cpm.Config {
	return cpm.Config{
		MaxIterations: c.Engine.MaxIterations,
		AllowCycles:   c.Engine.AllowCycles,
	}
}
