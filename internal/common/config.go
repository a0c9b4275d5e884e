package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/fueltrack/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=0,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// PipelineConfig describes the external extraction pipeline: the interpreter,
// the fixed ordered script list, and the spreadsheet staging paths shared with
// the scripts.
type PipelineConfig struct {
	Interpreter       string   `toml:"interpreter" validate:"required"` // e.g. "python3"
	ScriptsDir        string   `toml:"scripts_dir" validate:"required"`
	Scripts           []string `toml:"scripts" validate:"required,min=1"` // ordered
	MissingDataScript string   `toml:"missing_data_script"`               // optional JSON-reporting variant
	FuelDataPath      string   `toml:"fuel_data_path" validate:"required"`
	FlightDataPath    string   `toml:"flight_data_path" validate:"required"`
	MergedDataPath    string   `toml:"merged_data_path" validate:"required"`
}

// SpreadsheetPaths maps each tracked data category to its staging file.
// The merged file is checked separately and is not a detector category.
func (p *PipelineConfig) SpreadsheetPaths() map[string]string {
	return map[string]string{
		models.CategoryFuelData:   p.FuelDataPath,
		models.CategoryFlightData: p.FlightDataPath,
	}
}

// ScriptPath resolves a script name against the scripts directory.
func (p *PipelineConfig) ScriptPath(name string) string {
	return filepath.Join(p.ScriptsDir, name)
}

// SchedulerConfig holds orchestrator-level settings; per-user schedules live
// in user settings, not here.
type SchedulerConfig struct {
	Timezone string   `toml:"timezone" validate:"required"` // fixed zone for all schedule evaluation
	Roles    []string `toml:"roles"`                        // roles entitled to scheduling
}

// WebSocketConfig contains configuration for real-time event delivery
type WebSocketConfig struct {
	// Throttle interval for run progress broadcasts, e.g. "500ms". Empty
	// disables throttling.
	ProgressThrottle string `toml:"progress_throttle"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in fueltrack.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Pipeline: PipelineConfig{
			Interpreter: "python3",
			ScriptsDir:  "./scripts",
			Scripts: []string{
				"extract_fuel_data.py",
				"extract_flight_data.py",
				"merge_data.py",
				"validate_data.py",
			},
			MissingDataScript: "check_missing_data.py",
			FuelDataPath:      "./data/spreadsheets/fuel_data.csv",
			FlightDataPath:    "./data/spreadsheets/flight_data.csv",
			MergedDataPath:    "./data/spreadsheets/merged_data.csv",
		},
		Scheduler: SchedulerConfig{
			Timezone: "UTC",
			Roles:    []string{models.RoleAdmin, models.RoleDataManager},
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: "500ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with precedence:
// defaults -> TOML file -> environment variables.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the resolved configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies FUELTRACK_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FUELTRACK_ENVIRONMENT"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("FUELTRACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FUELTRACK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("FUELTRACK_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if interpreter := os.Getenv("FUELTRACK_PIPELINE_INTERPRETER"); interpreter != "" {
		config.Pipeline.Interpreter = interpreter
	}
	if dir := os.Getenv("FUELTRACK_PIPELINE_SCRIPTS_DIR"); dir != "" {
		config.Pipeline.ScriptsDir = dir
	}
	if tz := os.Getenv("FUELTRACK_SCHEDULER_TIMEZONE"); tz != "" {
		config.Scheduler.Timezone = tz
	}
	if level := os.Getenv("FUELTRACK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FUELTRACK_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		outputs := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
