package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGeminiEndpoint is the generateContent base URL
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// Config holds user preferences
type Config struct {
	Editor        string `yaml:"editor" json:"editor"`                 // Default editor command
	ConfirmDelete bool   `yaml:"confirm_delete" json:"confirm_delete"` // Require confirmation for delete

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	// Storage
	DBPath string `yaml:"db_path" json:"db_path"`

	// Assistant
	GeminiEndpoint string `yaml:"gemini_endpoint" json:"gemini_endpoint"`
	GeminiModel    string `yaml:"gemini_model" json:"gemini_model"`
	GeminiTimeout  string `yaml:"gemini_timeout" json:"gemini_timeout"` // Go duration, e.g. "60s"

	// Daily insight
	DailyTime     string `yaml:"daily_time" json:"daily_time"` // HH:MM local time
	RecheckPeriod string `yaml:"recheck_period" json:"recheck_period"`

	// Daemon
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"` // empty disables /metrics
}

// Dir returns the devpilot home directory (~/.devpilot or $DEVPILOT_HOME)
func Dir() (string, error) {
	if dir := os.Getenv("DEVPILOT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".devpilot"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	logPath := ""
	dbPath := ""
	if dir, err := Dir(); err == nil {
		logPath = filepath.Join(dir, "logs", "devpilot.log")
		dbPath = filepath.Join(dir, "devpilot.db")
	}

	return &Config{
		Editor:         "vim",
		ConfirmDelete:  true,
		LogLevel:       getEnv("DEVPILOT_LOG_LEVEL", "INFO"),
		LogFile:        getEnv("DEVPILOT_LOG_FILE", logPath),
		LogConsole:     getEnv("DEVPILOT_LOG_CONSOLE", "false") == "true",
		DBPath:         getEnv("DEVPILOT_DB_PATH", dbPath),
		GeminiEndpoint: getEnv("DEVPILOT_GEMINI_ENDPOINT", DefaultGeminiEndpoint),
		GeminiModel:    getEnv("DEVPILOT_GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTimeout:  getEnv("DEVPILOT_GEMINI_TIMEOUT", "60s"),
		DailyTime:      getEnv("DEVPILOT_DAILY_TIME", "08:00"),
		RecheckPeriod:  getEnv("DEVPILOT_RECHECK_PERIOD", "30m"),
		MetricsAddr:    getEnv("DEVPILOT_METRICS_ADDR", ""),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Path returns the config file location
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads config from ~/.devpilot/config.yaml
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}

	// Check if exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Return defaults if no config
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves config to ~/.devpilot/config.yaml
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Timeout returns the remote call timeout, 60s when unset or invalid
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.GeminiTimeout, 60*time.Second)
}

// Recheck returns how often the daemon re-evaluates the daily gate
func (c *Config) Recheck() time.Duration {
	return parseDuration(c.RecheckPeriod, 30*time.Minute)
}

// Set updates a single setting by its yaml key
func (c *Config) Set(key, value string) error {
	switch key {
	case "editor":
		c.Editor = value
	case "confirm_delete":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("confirm_delete: %w", err)
		}
		c.ConfirmDelete = b
	case "log_level":
		c.LogLevel = strings.ToUpper(value)
	case "log_file":
		c.LogFile = value
	case "db_path":
		c.DBPath = value
	case "gemini_endpoint":
		c.GeminiEndpoint = value
	case "gemini_model":
		c.GeminiModel = value
	case "gemini_timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("gemini_timeout: %w", err)
		}
		c.GeminiTimeout = value
	case "daily_time":
		if _, _, err := ParseDailyTime(value); err != nil {
			return err
		}
		c.DailyTime = value
	case "recheck_period":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("recheck_period: %w", err)
		}
		c.RecheckPeriod = value
	case "metrics_addr":
		c.MetricsAddr = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// ParseDailyTime reads an HH:MM time of day
func ParseDailyTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid daily time %q (use HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
