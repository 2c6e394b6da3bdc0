package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the analyzer service
type Config struct {
	// HTTP API settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Reddit API credentials and paging
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Gemini model and file-processing settings
	Gemini GeminiConfig `yaml:"gemini" json:"gemini"`

	// Retry policy for Reddit calls
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Scratch file settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Background task execution
	Workers WorkerConfig `yaml:"workers" json:"workers"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	SessionSecret   string        `yaml:"session_secret" json:"session_secret"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	Mode            string        `yaml:"mode" json:"mode"`
}

// Address returns host:port for the listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedditConfig holds Reddit API configuration
type RedditConfig struct {
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	AuthURL      string        `yaml:"auth_url" json:"auth_url"`
	PageSize     int           `yaml:"page_size" json:"page_size"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey          string        `yaml:"api_key" json:"api_key"`
	Model           string        `yaml:"model" json:"model"`
	Temperature     float32       `yaml:"temperature" json:"temperature"`
	TopP            float32       `yaml:"top_p" json:"top_p"`
	TopK            float32       `yaml:"top_k" json:"top_k"`
	MaxOutputTokens int32         `yaml:"max_output_tokens" json:"max_output_tokens"`
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxPolls        int           `yaml:"max_polls" json:"max_polls"`
	PromptFile      string        `yaml:"prompt_file" json:"prompt_file"`
}

// RetryConfig holds the retry policy for remote content calls
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" json:"max_attempts"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// StorageConfig holds scratch storage configuration
type StorageConfig struct {
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir"`
}

// WorkerConfig holds background execution configuration
type WorkerConfig struct {
	// MaxConcurrent caps running pipelines; 0 means unlimited
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			Mode:            "release",
		},
		Reddit: RedditConfig{
			UserAgent: "redditanalyzer/1.0",
			BaseURL:   "https://oauth.reddit.com",
			AuthURL:   "https://www.reddit.com/api/v1/access_token",
			PageSize:  100,
			Timeout:   30 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:           "gemini-exp-1206",
			Temperature:     1,
			TopP:            0.95,
			TopK:            64,
			MaxOutputTokens: 8192,
			PollInterval:    10 * time.Second,
			MaxPolls:        60,
		},
		Retry: RetryConfig{
			MaxAttempts:       5,
			BackoffMultiplier: 2,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Storage: StorageConfig{
			ScratchDir: os.TempDir(),
		},
		Workers: WorkerConfig{
			MaxConcurrent: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	// Credentials keep the names used by existing deployments
	setString("REDDIT_CLIENT_ID", &c.Reddit.ClientID)
	setString("REDDIT_CLIENT_SECRET", &c.Reddit.ClientSecret)
	setString("REDDIT_USER_AGENT", &c.Reddit.UserAgent)
	setString("GEMINI_API_KEY", &c.Gemini.APIKey)
	setString("SECRET_KEY", &c.Server.SessionSecret)

	setString("REDDITANALYZER_HOST", &c.Server.Host)
	setInt("REDDITANALYZER_PORT", &c.Server.Port)
	setString("REDDITANALYZER_GEMINI_MODEL", &c.Gemini.Model)
	setDuration("REDDITANALYZER_POLL_INTERVAL", &c.Gemini.PollInterval)
	setInt("REDDITANALYZER_MAX_POLLS", &c.Gemini.MaxPolls)
	setInt("REDDITANALYZER_MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	setInt("REDDITANALYZER_REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setString("REDDITANALYZER_SCRATCH_DIR", &c.Storage.ScratchDir)
	setInt("REDDITANALYZER_MAX_CONCURRENT", &c.Workers.MaxConcurrent)
	setString("REDDITANALYZER_LOG_LEVEL", &c.Logging.Level)
	setString("REDDITANALYZER_LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
		".redditanalyzer.yaml",
		".redditanalyzer.yml",
		filepath.Join(home, ".config", "redditanalyzer", "config.yaml"),
		filepath.Join(home, ".config", "redditanalyzer", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// Credentials are checked separately by RequireCredentials since the
// credential store may still fill them in.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		errs = append(errs, errors.New("server mode must be debug, release or test"))
	}

	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("reddit user agent is required"))
	}
	if c.Reddit.PageSize <= 0 || c.Reddit.PageSize > 100 {
		errs = append(errs, errors.New("reddit page size must be between 1 and 100"))
	}
	if c.Reddit.Timeout <= 0 {
		errs = append(errs, errors.New("reddit timeout must be positive"))
	}

	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("gemini model is required"))
	}
	if c.Gemini.PollInterval <= 0 {
		errs = append(errs, errors.New("gemini poll interval must be positive"))
	}
	if c.Gemini.MaxPolls <= 0 {
		errs = append(errs, errors.New("gemini max polls must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("retry backoff multiplier must be at least 1"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Storage.ScratchDir == "" {
		errs = append(errs, errors.New("scratch directory is required"))
	}
	if c.Workers.MaxConcurrent < 0 {
		errs = append(errs, errors.New("max concurrent workers cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// RequireCredentials checks the secrets needed to run the pipeline
func (c *Config) RequireCredentials() error {
	var errs []error
	if c.Reddit.ClientID == "" {
		errs = append(errs, errors.New("reddit client id is required (REDDIT_CLIENT_ID)"))
	}
	if c.Reddit.ClientSecret == "" {
		errs = append(errs, errors.New("reddit client secret is required (REDDIT_CLIENT_SECRET)"))
	}
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("gemini api key is required (GEMINI_API_KEY)"))
	}
	return errors.Join(errs...)
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
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if dir, ok := flags["scratch-dir"].(string); ok && dir != "" {
		c.Storage.ScratchDir = dir
	}
	if model, ok := flags["model"].(string); ok && model != "" {
		c.Gemini.Model = model
	}
	if maxConcurrent, ok := flags["max-concurrent"].(int); ok && maxConcurrent > 0 {
		c.Workers.MaxConcurrent = maxConcurrent
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".redditanalyzer.env"))

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

// Redacted returns a copy with secrets masked, for display
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Reddit.ClientSecret = mask(cp.Reddit.ClientSecret)
	cp.Gemini.APIKey = mask(cp.Gemini.APIKey)
	cp.Server.SessionSecret = mask(cp.Server.SessionSecret)
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
