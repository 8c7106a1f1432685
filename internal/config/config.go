// Package config handles application configuration loading, saving, and API key management.
// Configuration is stored in <data dir>/config.json with restrictive permissions.
// Environment variables override config file values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	// DefaultDataDir is the storage directory created next to the binary
	DefaultDataDir = "data"
	// DefaultConfigFile is the config file name inside the data directory
	DefaultConfigFile = "config.json"
	// DefaultDBFile is the sqlite database file name
	DefaultDBFile = "app.db"
	// DefaultStaticDir is the directory served as the web UI when present
	DefaultStaticDir = "static"

	// DefaultModel is the chat-completion model used when none is configured
	DefaultModel = "gpt-4o-mini"
	// DefaultSystemPrompt is the base system prompt for every turn
	DefaultSystemPrompt = "You are a helpful voice assistant. Be concise and friendly."
	// DefaultPersona is the style line appended to the system prompt
	DefaultPersona = "calm, helpful"
	// DefaultHistoryLimit bounds the grounding history per turn
	DefaultHistoryLimit = 12
	// DefaultAddr is the listen address for the HTTP server
	DefaultAddr = ":8080"

	// Environment variable names
	EnvDataDir      = "DATA_DIR"
	EnvAddr         = "ADDR"
	EnvModel        = "MODEL"
	EnvSystemPrompt = "SYSTEM_PROMPT"
	EnvPersona      = "PERSONA"
	EnvHistoryLimit = "HISTORY_LIMIT"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvTavilyKey    = "TAVILY_API_KEY"
)

// Config represents the application configuration
type Config struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr"`
	// Model is the chat-completion model identifier
	Model string `json:"model"`
	// SystemPrompt is the base system prompt sent on every turn
	SystemPrompt string `json:"system_prompt"`
	// Persona is the default style directive when a request supplies none
	Persona string `json:"persona"`
	// HistoryLimit caps the number of recent messages used for grounding
	HistoryLimit int `json:"history_limit"`
	// StaticDir is served as the web UI when the directory exists
	StaticDir string `json:"static_dir"`
	// APIKeys stores credentials (prefer environment variables)
	APIKeys APIKeys `json:"api_keys,omitempty"`

	// Runtime-only fields (not persisted)
	configPath string
	mu         sync.RWMutex
}

// APIKeys holds credentials for the external collaborators.
// Note: Prefer environment variables over storing keys in config.
type APIKeys struct {
	OpenAI string `json:"openai,omitempty"`
	Tavily string `json:"tavily,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:         DefaultAddr,
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		Persona:      DefaultPersona,
		HistoryLimit: DefaultHistoryLimit,
		StaticDir:    DefaultStaticDir,
		APIKeys:      APIKeys{},
	}
}

// DataDir returns the storage directory, honoring the DATA_DIR override.
func DataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return DefaultDataDir
}

// GetDBPath returns the full path to the sqlite database file
func GetDBPath() string {
	return filepath.Join(DataDir(), DefaultDBFile)
}

// Load reads configuration from the config file and applies environment overrides
func Load() (*Config, error) {
	dataDir := DataDir()
	configPath := filepath.Join(dataDir, DefaultConfigFile)

	cfg := DefaultConfig()
	cfg.configPath = configPath

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Env vars take precedence over the file
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvSystemPrompt); v != "" {
		c.SystemPrompt = v
	}
	if v := os.Getenv(EnvPersona); v != "" {
		c.Persona = v
	}
	if v := os.Getenv(EnvHistoryLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.HistoryLimit = n
		}
	}
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		c.APIKeys.OpenAI = key
	}
	if key := os.Getenv(EnvTavilyKey); key != "" {
		c.APIKeys.Tavily = key
	}
}

// Save writes the configuration to the config file with restrictive permissions
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.configPath == "" {
		c.configPath = filepath.Join(DataDir(), DefaultConfigFile)
	}

	toSave := &Config{
		Addr:         c.Addr,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		Persona:      c.Persona,
		HistoryLimit: c.HistoryLimit,
		StaticDir:    c.StaticDir,
		APIKeys:      c.APIKeys,
	}

	data, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600 = owner read/write only
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetAPIKey returns the API key for the named collaborator.
// It checks environment variables first, then falls back to config.
func (c *Config) GetAPIKey(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "openai":
		if key := os.Getenv(EnvOpenAIKey); key != "" {
			return key
		}
		return c.APIKeys.OpenAI
	case "tavily":
		if key := os.Getenv(EnvTavilyKey); key != "" {
			return key
		}
		return c.APIKeys.Tavily
	default:
		return ""
	}
}

// HasAPIKey checks if an API key is configured for the collaborator
func (c *Config) HasAPIKey(name string) bool {
	return c.GetAPIKey(name) != ""
}
