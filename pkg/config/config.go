package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Auth modes for placing the service key in the request URL
const (
	// AuthModeURL appends the already percent-encoded key to the URL verbatim
	AuthModeURL = "url"
	// AuthModeQuery passes the decoded key as a normal query parameter
	AuthModeQuery = "query"
)

// Config holds all configuration options for hirafetch
type Config struct {
	// HIRA API endpoints and credentials
	API APIConfig `yaml:"api" json:"api"`

	// Retry policy for individual API calls
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Checkpoint persistence
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Fetch loop tunables
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Code tables (region, department, class)
	Codes CodesConfig `yaml:"codes" json:"codes"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Metrics textfile export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds HIRA open API configuration
type APIConfig struct {
	ListURL        string        `yaml:"list_url" json:"list_url"`
	DetailURL      string        `yaml:"detail_url" json:"detail_url"`
	ServiceKey     string        `yaml:"service_key" json:"service_key"`
	AuthMode       string        `yaml:"auth_mode" json:"auth_mode"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	PageSize       int           `yaml:"page_size" json:"page_size"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// CheckpointConfig holds checkpoint configuration
type CheckpointConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Interval  int           `yaml:"interval" json:"interval"`
	Directory string        `yaml:"directory" json:"directory"`
	Backend   string        `yaml:"backend" json:"backend"`
	Redis     RedisConfig   `yaml:"redis" json:"redis"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// RedisConfig holds Redis connection details for the redis checkpoint backend
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	Database  int    `yaml:"database" json:"database"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// FetchConfig holds fetch loop configuration
type FetchConfig struct {
	// MaxResults caps the number of accumulated records (0 means no cap)
	MaxResults int `yaml:"max_results" json:"max_results"`
	// DetailDelay is the pause between consecutive detail calls
	DetailDelay time.Duration `yaml:"detail_delay" json:"detail_delay"`
}

// CodesConfig points at the code table data file
type CodesConfig struct {
	File string `yaml:"file" json:"file"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Format    string `yaml:"format" json:"format"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			ListURL:        "http://apis.data.go.kr/B551182/hospInfoServicev2/getHospBasisList",
			DetailURL:      "http://apis.data.go.kr/B551182/MadmDtlInfoService2.7/getDtlInfo",
			AuthMode:       AuthModeURL,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    60 * time.Second,
			PageSize:       100,
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   1 * time.Second,
			MaxDelay:    0,
		},
		Checkpoint: CheckpointConfig{
			Enabled:   true,
			Interval:  5,
			Directory: ".",
			Backend:   "file",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "hirafetch:checkpoint:",
			},
		},
		Fetch: FetchConfig{
			MaxResults:  0,
			DetailDelay: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			Directory: "data",
			Format:    "xlsx",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if key := os.Getenv("HIRAFETCH_SERVICE_KEY"); key != "" {
		c.API.ServiceKey = key
	}
	if mode := os.Getenv("HIRAFETCH_AUTH_MODE"); mode != "" {
		c.API.AuthMode = strings.ToLower(mode)
	}
	if u := os.Getenv("HIRAFETCH_LIST_URL"); u != "" {
		c.API.ListURL = u
	}
	if u := os.Getenv("HIRAFETCH_DETAIL_URL"); u != "" {
		c.API.DetailURL = u
	}

	if attempts := os.Getenv("HIRAFETCH_MAX_ATTEMPTS"); attempts != "" {
		var val int
		fmt.Sscanf(attempts, "%d", &val)
		if val > 0 {
			c.Retry.MaxAttempts = val
		}
	}

	if interval := os.Getenv("HIRAFETCH_CHECKPOINT_INTERVAL"); interval != "" {
		var val int
		fmt.Sscanf(interval, "%d", &val)
		if val > 0 {
			c.Checkpoint.Interval = val
		}
	}
	if enabled := os.Getenv("HIRAFETCH_CHECKPOINT_ENABLED"); enabled != "" {
		c.Checkpoint.Enabled = strings.ToLower(enabled) == "true"
	}
	if backend := os.Getenv("HIRAFETCH_CHECKPOINT_BACKEND"); backend != "" {
		c.Checkpoint.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("HIRAFETCH_REDIS_ADDR"); addr != "" {
		c.Checkpoint.Redis.Addr = addr
	}
	if pass := os.Getenv("HIRAFETCH_REDIS_PASSWORD"); pass != "" {
		c.Checkpoint.Redis.Password = pass
	}

	if outputDir := os.Getenv("HIRAFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if codesFile := os.Getenv("HIRAFETCH_CODES_FILE"); codesFile != "" {
		c.Codes.File = codesFile
	}
	if textfile := os.Getenv("HIRAFETCH_METRICS_TEXTFILE"); textfile != "" {
		c.Metrics.TextfilePath = textfile
	}

	if logLevel := os.Getenv("HIRAFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".hirafetch.yaml",
		".hirafetch.yml",
		filepath.Join(home, ".config", "hirafetch", "config.yaml"),
		filepath.Join(home, ".config", "hirafetch", "config.yml"),
		filepath.Join(home, ".hirafetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.ListURL == "" {
		errs = append(errs, errors.New("list API URL is required"))
	}
	if c.API.DetailURL == "" {
		errs = append(errs, errors.New("detail API URL is required"))
	}
	if c.API.AuthMode != AuthModeURL && c.API.AuthMode != AuthModeQuery {
		errs = append(errs, fmt.Errorf("auth mode must be %q or %q", AuthModeURL, AuthModeQuery))
	}
	if c.API.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	}
	if c.API.ReadTimeout <= 0 {
		errs = append(errs, errors.New("read timeout must be positive"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("base delay cannot be negative"))
	}

	if c.Checkpoint.Interval <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}
	switch c.Checkpoint.Backend {
	case "file":
	case "redis":
		if c.Checkpoint.Redis.Addr == "" {
			errs = append(errs, errors.New("redis address is required for the redis checkpoint backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend: %s", c.Checkpoint.Backend))
	}

	if c.Fetch.MaxResults < 0 {
		errs = append(errs, errors.New("max results cannot be negative"))
	}
	if c.Fetch.DetailDelay < 0 {
		errs = append(errs, errors.New("detail delay cannot be negative"))
	}

	validFormats := map[string]bool{"csv": true, "xlsx": true}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		errs = append(errs, errors.New("output format must be csv or xlsx"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if key, ok := flags["service-key"].(string); ok && key != "" {
		c.API.ServiceKey = key
	}
	if mode, ok := flags["auth-mode"].(string); ok && mode != "" {
		c.API.AuthMode = strings.ToLower(mode)
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.API.PageSize = pageSize
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if maxResults, ok := flags["max-results"].(int); ok && maxResults > 0 {
		c.Fetch.MaxResults = maxResults
	}
	if delay, ok := flags["detail-delay"].(time.Duration); ok && delay >= 0 {
		c.Fetch.DetailDelay = delay
	}
	if interval, ok := flags["checkpoint-interval"].(int); ok && interval > 0 {
		c.Checkpoint.Interval = interval
	}
	if enabled, ok := flags["checkpoint"].(bool); ok {
		c.Checkpoint.Enabled = enabled
	}
	if backend, ok := flags["checkpoint-backend"].(string); ok && backend != "" {
		c.Checkpoint.Backend = strings.ToLower(backend)
	}
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Output.Format = strings.ToLower(format)
	}
	if codesFile, ok := flags["codes-file"].(string); ok && codesFile != "" {
		c.Codes.File = codesFile
	}
	if textfile, ok := flags["metrics-textfile"].(string); ok && textfile != "" {
		c.Metrics.TextfilePath = textfile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".hirafetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
