package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/parkwise/pkg/gemini"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Locator LocatorConfig `json:"locator" yaml:"locator"`
	Lot     LotConfig     `json:"lot" yaml:"lot"`
}

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	Addr            string   `json:"addr" yaml:"addr"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LocatorConfig holds configuration for the spot locator and its vision backend
type LocatorConfig struct {
	Backend       string   `json:"backend" yaml:"backend"`
	Model         string   `json:"model" yaml:"model"`
	URL           string   `json:"url" yaml:"url"`
	APIKey        string   `json:"api_key" yaml:"api_key"`
	Timeout       Duration `json:"timeout" yaml:"timeout"`
	MaxImageBytes int      `json:"max_image_bytes" yaml:"max_image_bytes"`
	Prepare       bool     `json:"prepare" yaml:"prepare"`
	SendSize      int      `json:"send_size" yaml:"send_size"`
	SendQuality   int      `json:"send_quality" yaml:"send_quality"`
}

// LotConfig holds configuration for the mock lot
type LotConfig struct {
	Seed int64 `json:"seed" yaml:"seed"`
}

// Supported backends
const (
	BackendGemini   = "gemini"
	BackendOllama   = "ollama"
	BackendLlamaCPP = "llamacpp"
)

// DefaultModel returns the model used by a backend when none is configured
func DefaultModel(backend string) string {
	switch backend {
	case BackendOllama:
		return "llava"
	case BackendLlamaCPP:
		// llama.cpp serves a single model and ignores the name
		return "default"
	}
	return gemini.DefaultModel
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":9002",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Locator: LocatorConfig{
			Backend:       BackendGemini,
			Model:         DefaultModel(BackendGemini),
			Timeout:       Duration(2 * time.Minute),
			MaxImageBytes: 4 * 1024 * 1024,
			Prepare:       false,
			SendSize:      1536,
			SendQuality:   85,
		},
		Lot: LotConfig{
			Seed: 12345,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// api keys may be stored here
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file from the working directory when present and
// overrides fields from PARKWISE_* variables. Gemini keys fall back to
// GEMINI_API_KEY and GOOGLE_API_KEY.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("PARKWISE_ADDR", &c.Server.Addr)
	setString("PARKWISE_BACKEND", &c.Locator.Backend)
	setString("PARKWISE_MODEL", &c.Locator.Model)
	setString("PARKWISE_URL", &c.Locator.URL)

	if c.Locator.APIKey == "" {
		setString("GOOGLE_API_KEY", &c.Locator.APIKey)
		setString("GEMINI_API_KEY", &c.Locator.APIKey)
	}
	setString("PARKWISE_API_KEY", &c.Locator.APIKey)

	if v := os.Getenv("PARKWISE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PARKWISE_TIMEOUT: %w", err)
		}
		c.Locator.Timeout = Duration(d)
	}
	if v := os.Getenv("PARKWISE_MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PARKWISE_MAX_IMAGE_BYTES: %w", err)
		}
		c.Locator.MaxImageBytes = n
	}
	if v := os.Getenv("PARKWISE_PREPARE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PARKWISE_PREPARE: %w", err)
		}
		c.Locator.Prepare = b
	}
	if v := os.Getenv("PARKWISE_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PARKWISE_SEED: %w", err)
		}
		c.Lot.Seed = n
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	switch c.Locator.Backend {
	case BackendGemini:
		if c.Locator.APIKey == "" {
			return fmt.Errorf("locator.api_key is required for the gemini backend (or set GEMINI_API_KEY)")
		}
	case BackendOllama, BackendLlamaCPP:
	default:
		return fmt.Errorf("locator.backend must be one of %s, %s, %s", BackendGemini, BackendOllama, BackendLlamaCPP)
	}

	if c.Locator.Model == "" {
		return fmt.Errorf("locator.model cannot be empty")
	}

	if c.Locator.MaxImageBytes < 1 {
		return fmt.Errorf("locator.max_image_bytes must be positive")
	}

	if c.Locator.Timeout < 0 {
		return fmt.Errorf("locator.timeout cannot be negative")
	}

	if c.Locator.SendSize < 0 {
		return fmt.Errorf("locator.send_size cannot be negative")
	}

	if c.Locator.SendQuality < 1 || c.Locator.SendQuality > 100 {
		return fmt.Errorf("locator.send_quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "parkwise", "config.json")
}
