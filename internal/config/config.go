package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is used when CONFIG_PATH is not set
	DefaultPath = "./config/config.yaml"

	EnvConfigPath = "CONFIG_PATH"
	EnvEmail      = "LINKEDIN_EMAIL"
	EnvPassword   = "LINKEDIN_PASSWORD"
)

// Config represents the application configuration
type Config struct {
	Credentials       CredentialsConfig `yaml:"credentials"`
	Search            SearchConfig      `yaml:"search"`
	ConnectionMessage string            `yaml:"connection_message"`
	Connection        ConnectionConfig  `yaml:"connection"`
	Delays            DelaysConfig      `yaml:"delays"`
	Limits            LimitsConfig      `yaml:"limits"`
	Stealth           StealthConfig     `yaml:"stealth"`
	Browser           BrowserConfig     `yaml:"browser"`
	Database          DatabaseConfig    `yaml:"database"`
	Logging           LoggingConfig     `yaml:"logging"`
}

// CredentialsConfig contains LinkedIn credentials
type CredentialsConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SearchConfig contains search parameters
type SearchConfig struct {
	CompanyName       string `yaml:"company_name"`
	Location          string `yaml:"location"`
	RoleCategory      string `yaml:"role_category"`
	MaxRequests       int    `yaml:"max_requests"`
	MutualConnections bool   `yaml:"mutual_connections"`
	MaxPages          int    `yaml:"max_pages"`
}

// ConnectionConfig contains connection request settings
type ConnectionConfig struct {
	DryRun bool `yaml:"dry_run"`
}

// DelaysConfig contains wait and pacing settings, all in seconds
type DelaysConfig struct {
	MinRequestSeconds   float64 `yaml:"min_request_seconds"`
	MaxRequestSeconds   float64 `yaml:"max_request_seconds"`
	SessionProbeSeconds float64 `yaml:"session_probe_seconds"`
	LoginWaitSeconds    float64 `yaml:"login_wait_seconds"`
	PageLoadSeconds     float64 `yaml:"page_load_seconds"`
	BreakEvery          int     `yaml:"break_every"`
	BreakMinSeconds     float64 `yaml:"break_min_seconds"`
	BreakMaxSeconds     float64 `yaml:"break_max_seconds"`
	// BreakChance is the probability of taking a due break; 0 always takes it
	BreakChance         float64 `yaml:"break_chance"`
	PagePauseMinSeconds float64 `yaml:"page_pause_min_seconds"`
	PagePauseMaxSeconds float64 `yaml:"page_pause_max_seconds"`
}

// LimitsConfig contains rate limits
type LimitsConfig struct {
	DailyRequests int `yaml:"daily_requests"`
}

// StealthConfig contains anti-detection settings
type StealthConfig struct {
	TypingSpeedMs int     `yaml:"typing_speed_ms"`
	TypoRate      float64 `yaml:"typo_rate"`
}

// BrowserConfig contains browser launch settings
type BrowserConfig struct {
	Headless   bool   `yaml:"headless"`
	ProfileDir string `yaml:"profile_dir"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

// Load loads configuration from the YAML file named by CONFIG_PATH and the environment
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if not present)
	_ = godotenv.Load()

	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		configPath = DefaultPath
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from the given YAML file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, applies environment overrides and defaults, and validates
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in YAML
	expanded := expandEnvVars(string(data))

	// Keys absent from the file keep these values
	cfg := Config{Logging: LoggingConfig{ToFile: true}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables take precedence over the file
	if email := os.Getenv(EnvEmail); email != "" {
		cfg.Credentials.Email = email
	}
	if password := os.Getenv(EnvPassword); password != "" {
		cfg.Credentials.Password = password
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Search.MaxPages == 0 {
		c.Search.MaxPages = 10
	}
	if c.Delays.MinRequestSeconds == 0 && c.Delays.MaxRequestSeconds == 0 {
		c.Delays.MinRequestSeconds = 3
		c.Delays.MaxRequestSeconds = 5
	}
	if c.Delays.SessionProbeSeconds == 0 {
		c.Delays.SessionProbeSeconds = 5
	}
	if c.Delays.LoginWaitSeconds == 0 {
		c.Delays.LoginWaitSeconds = 15
	}
	if c.Delays.PageLoadSeconds == 0 {
		c.Delays.PageLoadSeconds = 30
	}
	if c.Delays.BreakMinSeconds == 0 && c.Delays.BreakMaxSeconds == 0 {
		c.Delays.BreakMinSeconds = 600
		c.Delays.BreakMaxSeconds = 1800
	}
	if c.Delays.PagePauseMinSeconds == 0 && c.Delays.PagePauseMaxSeconds == 0 {
		c.Delays.PagePauseMinSeconds = 3
		c.Delays.PagePauseMaxSeconds = 6
	}
	if c.Limits.DailyRequests == 0 {
		c.Limits.DailyRequests = 30
	}
	if c.Stealth.TypingSpeedMs == 0 {
		c.Stealth.TypingSpeedMs = 150
	}
	if c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = "./chrome-data"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/linkedin.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/main.log"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Credentials.Email == "" {
		return fmt.Errorf("credentials.email is required (or set %s)", EnvEmail)
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("credentials.password is required (or set %s)", EnvPassword)
	}

	if strings.TrimSpace(c.Search.RoleCategory) == "" {
		return fmt.Errorf("search.role_category is required")
	}
	if c.Search.MaxRequests <= 0 {
		return fmt.Errorf("search.max_requests must be positive")
	}
	if c.Search.MaxPages <= 0 {
		return fmt.Errorf("search.max_pages must be positive")
	}

	if strings.TrimSpace(c.ConnectionMessage) == "" {
		return fmt.Errorf("connection_message is required")
	}

	if c.Delays.MinRequestSeconds < 0 {
		return fmt.Errorf("delays.min_request_seconds must be non-negative")
	}
	if c.Delays.MaxRequestSeconds < c.Delays.MinRequestSeconds {
		return fmt.Errorf("delays.max_request_seconds must be >= delays.min_request_seconds")
	}
	if c.Delays.BreakEvery < 0 {
		return fmt.Errorf("delays.break_every must be non-negative")
	}
	if c.Delays.BreakMaxSeconds < c.Delays.BreakMinSeconds {
		return fmt.Errorf("delays.break_max_seconds must be >= delays.break_min_seconds")
	}

	if c.Delays.BreakChance < 0 || c.Delays.BreakChance > 1 {
		return fmt.Errorf("delays.break_chance must be between 0 and 1")
	}
	if c.Delays.PagePauseMinSeconds < 0 || c.Delays.PagePauseMaxSeconds < c.Delays.PagePauseMinSeconds {
		return fmt.Errorf("delays.page_pause_max_seconds must be >= delays.page_pause_min_seconds >= 0")
	}

	if c.Limits.DailyRequests <= 0 {
		return fmt.Errorf("limits.daily_requests must be positive")
	}

	if c.Stealth.TypoRate < 0 || c.Stealth.TypoRate > 1 {
		return fmt.Errorf("stealth.typo_rate must be between 0 and 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(s string) string {
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := pattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(parts[1])
		if value == "" && len(parts) > 2 {
			return parts[2]
		}
		return value
	})
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// GetMinRequestDelay returns the lower bound of the pause between connection requests
func (c *Config) GetMinRequestDelay() time.Duration {
	return seconds(c.Delays.MinRequestSeconds)
}

// GetMaxRequestDelay returns the upper bound of the pause between connection requests
func (c *Config) GetMaxRequestDelay() time.Duration {
	return seconds(c.Delays.MaxRequestSeconds)
}

// GetSessionProbeTimeout returns how long to look for an existing session
func (c *Config) GetSessionProbeTimeout() time.Duration {
	return seconds(c.Delays.SessionProbeSeconds)
}

// GetLoginTimeout returns how long to wait for the landmark after submitting credentials
func (c *Config) GetLoginTimeout() time.Duration {
	return seconds(c.Delays.LoginWaitSeconds)
}

// GetPageLoadTimeout returns the bound for a single page navigation or element wait
func (c *Config) GetPageLoadTimeout() time.Duration {
	return seconds(c.Delays.PageLoadSeconds)
}

// GetBreakRange returns the bounds of a periodic long break
func (c *Config) GetBreakRange() (time.Duration, time.Duration) {
	return seconds(c.Delays.BreakMinSeconds), seconds(c.Delays.BreakMaxSeconds)
}

// GetPagePauseRange returns the bounds of the pause between search result pages
func (c *Config) GetPagePauseRange() (time.Duration, time.Duration) {
	return seconds(c.Delays.PagePauseMinSeconds), seconds(c.Delays.PagePauseMaxSeconds)
}

// GetTypingSpeed returns the typing speed as a duration
func (c *Config) GetTypingSpeed() time.Duration {
	return time.Duration(c.Stealth.TypingSpeedMs) * time.Millisecond
}
