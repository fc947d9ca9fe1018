package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.max_iterations")
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the accepted logging.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted logging.format values.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// ValidDrivers returns the registered SQL drivers.
func ValidDrivers() []string {
	return []string{"sqlite3", "postgres"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Engine.MaxIterations < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.max_iterations",
			Value:   c.Engine.MaxIterations,
			Message: "must be at least 1",
		})
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.workers",
			Value:   c.Engine.Workers,
			Message: "must be non-negative (0 means one per CPU)",
		})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %v", ValidLogLevels()),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of %v", ValidLogFormats()),
		})
	}

	if c.Database.Enabled() {
		if !slices.Contains(ValidDrivers(), c.Database.Driver) {
			errs = append(errs, ValidationError{
				Field:   "database.driver",
				Value:   c.Database.Driver,
				Message: fmt.Sprintf("must be one of %v", ValidDrivers()),
			})
		}
		if strings.TrimSpace(c.Database.Query) == "" {
			errs = append(errs, ValidationError{
				Field:   "database.query",
				Value:   c.Database.Query,
				Message: "must not be empty when database.dsn is set",
			})
		}
	}

	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}
	if c.Server.ReadTimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.read_timeout_seconds",
			Value:   c.Server.ReadTimeoutSeconds,
			Message: "must be non-negative",
		})
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.shutdown_timeout_seconds",
			Value:   c.Server.ShutdownTimeoutSeconds,
			Message: "must be non-negative",
		})
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_body_bytes",
			Value:   c.Server.MaxBodyBytes,
			Message: "must be positive",
		})
	}

	return errs
}
