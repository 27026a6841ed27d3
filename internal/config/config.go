package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory = "memory"
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config holds the mixdex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Picker   PickerConfig   `yaml:"picker"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the picker state store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, valkey, redis, sqlite (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Path             string   `yaml:"path"` // sqlite file
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig lists catalog directories, defaults first.
type CatalogConfig struct {
	Dirs        []string `yaml:"dirs"`
	MaxParallel int      `yaml:"max_parallel"`
}

// RankingConfig holds ranking defaults and limits.
type RankingConfig struct {
	Weights         WeightsConfig `yaml:"weights"`
	DefaultTopK     int           `yaml:"default_top_k"`
	MaxTopK         int           `yaml:"max_top_k"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
}

// WeightsConfig holds default score weights. Nil means "use the built-in default",
// so an explicit 0 can switch a signal off.
type WeightsConfig struct {
	Flavor  *float64 `yaml:"flavor"`
	Style   *float64 `yaml:"style"`
	Base    *float64 `yaml:"base"`
	Keyword *float64 `yaml:"keyword"`
}

// PickerConfig holds daily pick settings.
type PickerConfig struct {
	Timezone string `yaml:"timezone"` // IANA name, empty = server local time
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // otlp-http, otlp-grpc
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML config.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "mixdex.db"
	}
	if c.Catalog.MaxParallel <= 0 {
		c.Catalog.MaxParallel = 8
	}
	c.Ranking.Weights.applyDefaults()
	if c.Ranking.DefaultTopK <= 0 {
		c.Ranking.DefaultTopK = 12
	}
	if c.Ranking.MaxTopK <= 0 {
		c.Ranking.MaxTopK = 500
	}
	if c.Ranking.DefaultPageSize <= 0 {
		c.Ranking.DefaultPageSize = 20
	}
	if c.Ranking.MaxPageSize <= 0 {
		c.Ranking.MaxPageSize = 100
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "mixdex:"
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "otlp-http"
	}
}

func (w *WeightsConfig) applyDefaults() {
	set := func(p **float64, v float64) {
		if *p == nil {
			*p = &v
		}
	}
	set(&w.Flavor, 0.60)
	set(&w.Style, 0.25)
	set(&w.Base, 0.15)
	set(&w.Keyword, 0.10)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite:
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be one of memory, valkey, redis, sqlite, got %q", c.Database.Driver)
	}
	for name, w := range map[string]*float64{
		"flavor": c.Ranking.Weights.Flavor, "style": c.Ranking.Weights.Style,
		"base": c.Ranking.Weights.Base, "keyword": c.Ranking.Weights.Keyword,
	} {
		if w != nil && (*w < 0 || math.IsNaN(*w) || math.IsInf(*w, 0)) {
			return fmt.Errorf("ranking.weights.%s must be a non-negative number", name)
		}
	}
	if c.Ranking.DefaultTopK > c.Ranking.MaxTopK {
		return fmt.Errorf("ranking.default_top_k (%d) exceeds ranking.max_top_k (%d)",
			c.Ranking.DefaultTopK, c.Ranking.MaxTopK)
	}
	if c.Ranking.DefaultPageSize > c.Ranking.MaxPageSize {
		return fmt.Errorf("ranking.default_page_size (%d) exceeds ranking.max_page_size (%d)",
			c.Ranking.DefaultPageSize, c.Ranking.MaxPageSize)
	}
	if c.Picker.Timezone != "" {
		if _, err := time.LoadLocation(c.Picker.Timezone); err != nil {
			return fmt.Errorf("picker.timezone: %w", err)
		}
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp-http", "otlp-grpc":
		default:
			return fmt.Errorf("tracing.exporter must be \"otlp-http\" or \"otlp-grpc\", got %q", c.Tracing.Exporter)
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("tracing.sampling_rate must be between 0 and 1, got %g", c.Tracing.SamplingRate)
		}
	}
	return nil
}

// Location returns the picker time zone; time.Local when unset.
func (p PickerConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
