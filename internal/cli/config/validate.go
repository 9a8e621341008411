package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

var validPETMethods = []string{"temperature", "constant", "script"}

// Validate checks if the configuration is valid. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error
	if c.Parameters == "" {
		errs = append(errs, fmt.Errorf("parameters is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	if !slices.Contains(validOutputs, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(validOutputs, ", "), c.OutputFormat))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.PET.Method != "" && !slices.Contains(validPETMethods, c.PET.Method) {
		errs = append(errs, fmt.Errorf("pet.method must be one of %s, got %q", strings.Join(validPETMethods, ", "), c.PET.Method))
	}
	if c.PET.Method == "script" && c.PET.Script == "" {
		errs = append(errs, fmt.Errorf("pet.script is required when pet.method is script"))
	}

	for _, w := range c.Writers {
		switch w {
		case WriterCSV:
			if c.OutputDir == "" {
				errs = append(errs, fmt.Errorf("output_dir is required by the csv writer"))
			}
		case WriterSQLite:
			if c.StatePath == "" {
				errs = append(errs, fmt.Errorf("state_path is required by the sqlite writer"))
			}
		case WriterPostgres:
			if c.Postgres.URL == "" {
				errs = append(errs, fmt.Errorf("postgres.url is required by the postgres writer"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown writer %q (expected %s, %s or %s)", w, WriterCSV, WriterSQLite, WriterPostgres))
		}
	}
	return errors.Join(errs...)
}

// ValidateInputs checks that the parameter file and driving data exist.
func (c *Config) ValidateInputs() error {
	var errs []error
	if _, err := os.Stat(c.Parameters); os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("parameter file does not exist: %s\nHint: run 'persist init' or use --parameters to specify a different path", c.Parameters))
	}
	if _, err := os.Stat(c.DrivingData); os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("driving data does not exist: %s\nHint: use --driving-data to specify a different path", c.DrivingData))
	}
	return errors.Join(errs...)
}

// ParseLogLevel maps a log_level value to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s)
	}
}
