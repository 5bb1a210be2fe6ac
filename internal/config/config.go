// Package config handles configuration for agrichat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/mkulima/agrichat/internal/models"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", "notty" or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// LogConfig configures the logrus logger
type LogConfig struct {
	Level  string `json:"level" env:"AGRICHAT_LOG_LEVEL" env-description:"log level: debug, info, warn, error"`
	Format string `json:"format" env:"AGRICHAT_LOG_FORMAT" env-description:"log format: text or json"`
	// File receives log output. The chat TUI always logs to a file, falling
	// back to agrichat.log in the config directory.
	File string `json:"file,omitempty" env:"AGRICHAT_LOG_FILE" env-description:"log file path"`
}

// USSDConfig configures the USSD callback service
type USSDConfig struct {
	Port int `json:"port" env:"PORT" env-description:"USSD service port"`
	// AskTimeoutSeconds bounds the assistant call inside one USSD step; 0
	// leaves it unbounded
	AskTimeoutSeconds int `json:"ask_timeout_seconds" env:"AGRICHAT_USSD_ASK_TIMEOUT" env-description:"USSD assistant timeout in seconds"`
	// Africa's Talking credentials are only read from the environment
	ATUsername string `json:"-" env:"AT_USERNAME" env-description:"Africa's Talking username"`
	ATAPIKey   string `json:"-" env:"AT_API_KEY" env-description:"Africa's Talking API key"`
}

// Config represents the user configuration
type Config struct {
	APIKey       string `json:"api_key,omitempty" env:"GEMINI_API_KEY" env-description:"Generative Language API key"`
	DefaultModel string `json:"default_model" env:"AGRICHAT_MODEL" env-description:"model name"`
	Endpoint     string `json:"endpoint,omitempty" env:"AGRICHAT_ENDPOINT" env-description:"API base URL"`
	// TimeoutSeconds bounds a single request at the transport
	TimeoutSeconds int `json:"timeout_seconds" env:"AGRICHAT_TIMEOUT" env-description:"request timeout in seconds"`
	// SerialTurns resolves concurrent questions one at a time, in the order
	// they were asked
	SerialTurns     bool           `json:"serial_turns" env:"AGRICHAT_SERIAL" env-description:"answer questions in submission order"`
	Verbose         bool           `json:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	Markdown        MarkdownConfig `json:"markdown"`
	Log             LogConfig      `json:"log"`
	USSD            USSDConfig     `json:"ussd"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DefaultModel:    models.DefaultModel.Name,
		Endpoint:        models.EndpointBase,
		TimeoutSeconds:  60,
		SerialTurns:     false,
		Verbose:         false,
		CopyToClipboard: false,
		Markdown:        DefaultMarkdownConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		USSD: USSDConfig{
			Port:              5000,
			AskTimeoutSeconds: 20,
		},
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".agrichat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory may hold the API key
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the log file path, defaulting to the config directory
func GetLogPath(cfg Config) (string, error) {
	if cfg.Log.File != "" {
		return cfg.Log.File, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "agrichat.log"), nil
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// LoadConfig loads the configuration from disk and applies environment
// overrides
func LoadConfig() (Config, error) {
	cfg, err := loadFile()
	if err != nil {
		return cfg, err
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, nil
}

// loadFile reads the config file over the defaults without env overrides
func loadFile() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SetValue updates the file configuration for key and saves it.
// Environment overrides are not written back.
func SetValue(key, value string) error {
	cfg, err := loadFile()
	if err != nil {
		return err
	}
	if err := Apply(&cfg, key, value); err != nil {
		return err
	}
	return SaveConfig(cfg)
}

// Apply sets a single key on cfg
func Apply(cfg *Config, key, value string) error {
	switch key {
	case "api_key":
		cfg.APIKey = strings.TrimSpace(value)
	case "default_model":
		cfg.DefaultModel = value
	case "endpoint":
		cfg.Endpoint = strings.TrimRight(value, "/")
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid timeout_seconds %q: must be a positive integer", value)
		}
		cfg.TimeoutSeconds = n
	case "serial_turns":
		return setBool(&cfg.SerialTurns, key, value)
	case "verbose":
		return setBool(&cfg.Verbose, key, value)
	case "copy_to_clipboard":
		return setBool(&cfg.CopyToClipboard, key, value)
	case "markdown.style":
		cfg.Markdown.Style = value
	case "log.level":
		switch value {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = value
		default:
			return fmt.Errorf("invalid log.level %q", value)
		}
	case "log.format":
		if value != "text" && value != "json" {
			return fmt.Errorf("invalid log.format %q", value)
		}
		cfg.Log.Format = value
	case "log.file":
		cfg.Log.File = value
	case "ussd.port":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("invalid ussd.port %q", value)
		}
		cfg.USSD.Port = n
	case "ussd.ask_timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid ussd.ask_timeout_seconds %q: must be zero or a positive integer", value)
		}
		cfg.USSD.AskTimeoutSeconds = n
	default:
		return fmt.Errorf("unknown config key %q (available: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: must be true or false", key, value)
	}
	*dst = b
	return nil
}

// Keys returns the keys accepted by Apply
func Keys() []string {
	return []string{
		"api_key",
		"default_model",
		"endpoint",
		"timeout_seconds",
		"serial_turns",
		"verbose",
		"copy_to_clipboard",
		"markdown.style",
		"log.level",
		"log.format",
		"log.file",
		"ussd.port",
		"ussd.ask_timeout_seconds",
	}
}

// EnvDescription lists the environment variables that override the file
func EnvDescription() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}

// AvailableModels returns a list of available model names
func AvailableModels() []string {
	var names []string
	for _, m := range models.AllModels() {
		names = append(names, m.Name)
	}
	return names
}

// Redacted returns a copy of cfg safe to print
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = redact(c.APIKey)
	}
	if c.USSD.ATAPIKey != "" {
		c.USSD.ATAPIKey = redact(c.USSD.ATAPIKey)
	}
	return c
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
