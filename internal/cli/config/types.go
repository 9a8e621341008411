// Package config provides configuration management for the persist CLI.
//
// A project is described by a persist.yaml file naming the parameter set,
// the driving data and where results go. Values can be overridden with
// PERSIST_ environment variables and command-line flags.
package config

// PETConfig selects the potential evapotranspiration estimator.
type PETConfig struct {
	Method   string  `koanf:"method" yaml:"method"`
	Constant float64 `koanf:"constant" yaml:"constant,omitempty"`
	Script   string  `koanf:"script" yaml:"script,omitempty"`
}

// PostgresConfig configures the Postgres output writer.
type PostgresConfig struct {
	URL   string `koanf:"url" yaml:"url,omitempty"`
	Table string `koanf:"table" yaml:"table,omitempty"`
}

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot string `koanf:"-" yaml:"-"`

	Parameters  string `koanf:"parameters" yaml:"parameters"`
	DrivingData string `koanf:"driving_data" yaml:"driving_data"`
	OutputDir   string `koanf:"output_dir" yaml:"output_dir"`
	StatePath   string `koanf:"state_path" yaml:"state_path"`

	Workers  int `koanf:"workers" yaml:"workers"`
	MaxSteps int `koanf:"max_steps" yaml:"max_steps"`

	LogLevel     string `koanf:"log_level" yaml:"log_level"`
	Verbose      bool   `koanf:"verbose" yaml:"verbose"`
	OutputFormat string `koanf:"output" yaml:"output"`

	PET         PETConfig      `koanf:"pet" yaml:"pet"`
	Writers     []string       `koanf:"writers" yaml:"writers"`
	Postgres    PostgresConfig `koanf:"postgres" yaml:"postgres,omitempty"`
	MetricsFile string         `koanf:"metrics_file" yaml:"metrics_file,omitempty"`
}

// Default configuration values.
const (
	DefaultConfigFile  = "persist.yaml"
	DefaultParameters  = "parameters.yaml"
	DefaultDrivingData = "driving.csv"
	DefaultOutputDir   = "results"
	DefaultStateFile   = ".persist/state.db"
	DefaultLogLevel    = "info"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPETMethod   = "temperature"

	EnvPrefix = "PERSIST_"
)

// Writer names accepted in the writers list.
const (
	WriterCSV      = "csv"
	WriterSQLite   = "sqlite"
	WriterPostgres = "postgres"
)

// DefaultWriters are used when the configuration names none.
var DefaultWriters = []string{WriterCSV, WriterSQLite}

// Default returns the configuration used when no file, environment or flag
// sets a value.
func Default() *Config {
	return &Config{
		Parameters:   DefaultParameters,
		DrivingData:  DefaultDrivingData,
		OutputDir:    DefaultOutputDir,
		StatePath:    DefaultStateFile,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		PET:          PETConfig{Method: DefaultPETMethod},
		Writers:      append([]string(nil), DefaultWriters...),
	}
}
