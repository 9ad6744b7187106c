package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendScenario = "scenario"
	BackendOllama   = "ollama"
)

// Config holds the application configuration. It is built once at the
// entry point and passed down; nothing mutates it afterwards.
type Config struct {
	API     APIConfig     `json:"api" yaml:"api"`
	Encoder EncoderConfig `json:"encoder" yaml:"encoder"`
	Ollama  OllamaConfig  `json:"ollama" yaml:"ollama"`
	Web     WebConfig     `json:"web" yaml:"web"`
}

// APIConfig holds configuration for the scenario-run API
type APIConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token" yaml:"token"`
	User    string `json:"user" yaml:"user"`
	// TimeoutSeconds bounds one blocking run
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EncoderConfig holds configuration for the image payload
type EncoderConfig struct {
	Quality int `json:"quality" yaml:"quality"`
	MaxDim  int `json:"max_dim" yaml:"max_dim"`
}

// OllamaConfig holds configuration for the local Ollama backend
type OllamaConfig struct {
	URL    string `json:"url" yaml:"url"`
	Model  string `json:"model" yaml:"model"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// WebConfig holds configuration for the demo UI
type WebConfig struct {
	Port           int    `json:"port" yaml:"port"`
	User           string `json:"user" yaml:"user"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		API: APIConfig{
			Backend:        BackendScenario,
			BaseURL:        "https://qa.agent.authme.ai",
			Token:          "",
			User:           "ocr-test",
			TimeoutSeconds: 300,
		},
		Encoder: EncoderConfig{
			Quality: 95,
			MaxDim:  0,
		},
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "llava",
		},
		Web: WebConfig{
			Port:           7864,
			User:           "ocr-web",
			MaxUploadBytes: 10 << 20,
		},
	}
}

// Timeout returns the run timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// LoadFromFile loads configuration from a JSON or YAML file on top of the
// defaults. The format follows the extension (.yaml/.yml, otherwise JSON).
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file carries the bearer token
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides values from the environment
func (c *Config) ApplyEnv() {
	c.ApplyEnvFunc(os.Getenv)
}

// ApplyEnvFunc overrides values using lookup, which returns "" for unset keys
func (c *Config) ApplyEnvFunc(lookup func(string) string) {
	getEnv := func(k, def string) string {
		if v := strings.TrimSpace(lookup(k)); v != "" {
			return v
		}
		return def
	}

	c.API.Backend = getEnv("SCENARIO_BACKEND", c.API.Backend)
	c.API.BaseURL = getEnv("SCENARIO_API_BASE", c.API.BaseURL)
	c.API.Token = getEnv("SCENARIO_TOKEN", c.API.Token)
	c.API.User = getEnv("SCENARIO_USER", c.API.User)
	if v, err := strconv.Atoi(getEnv("SCENARIO_TIMEOUT", "")); err == nil {
		c.API.TimeoutSeconds = v
	}
	c.Ollama.URL = getEnv("OLLAMA_HOST", c.Ollama.URL)
	c.Ollama.Model = getEnv("OLLAMA_MODEL", c.Ollama.Model)
	if v, err := strconv.Atoi(getEnv("PORT", "")); err == nil {
		c.Web.Port = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.API.Backend {
	case BackendScenario:
		if strings.TrimSpace(c.API.BaseURL) == "" {
			return fmt.Errorf("api.base_url cannot be empty")
		}
	case BackendOllama:
		if strings.TrimSpace(c.Ollama.Model) == "" {
			return fmt.Errorf("ollama.model cannot be empty")
		}
	default:
		return fmt.Errorf("api.backend must be %q or %q, got %q", BackendScenario, BackendOllama, c.API.Backend)
	}

	if c.API.TimeoutSeconds < 1 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}

	if c.Encoder.Quality < 1 || c.Encoder.Quality > 100 {
		return fmt.Errorf("encoder.quality must be between 1 and 100")
	}

	if c.Encoder.MaxDim < 0 {
		return fmt.Errorf("encoder.max_dim cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 1 and 65535")
	}

	if c.Web.MaxUploadBytes < 1 {
		return fmt.Errorf("web.max_upload_bytes must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "scenario-ocr", "config.yaml")
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
