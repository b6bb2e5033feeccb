// Package config loads and persists peopleops configuration.
// The canonical config lives at .peopleops/config.yaml inside the workspace;
// a missing file means defaults, and a handful of environment variables
// override what the file says.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all peopleops configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Dashboard HTTP server
	Server ServerConfig `yaml:"server"`

	// SQLite database
	Database DatabaseConfig `yaml:"database"`

	// Document store and chunking
	Documents DocumentsConfig `yaml:"documents"`

	// Gemini assistant
	Assistant AssistantConfig `yaml:"assistant"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store.
// Path is relative to the workspace root.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DocumentsConfig configures document storage and chunking.
// Paths are relative to the workspace root.
type DocumentsConfig struct {
	UploadDir        string `yaml:"upload_dir"`
	ChunkStore       string `yaml:"chunk_store"`
	ChunkSizeWords   int    `yaml:"chunk_size_words"`
	ChunkOverlap     int    `yaml:"chunk_overlap_words"`
	MaxContextChunks int    `yaml:"max_context_chunks"`
	MaxContextChars  int    `yaml:"max_context_chars"`
	Watch            bool   `yaml:"watch"`
}

// AssistantConfig configures the Gemini-backed document assistant.
type AssistantConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// LoggingConfig configures the category file logger.
// Mirrored by internal/logging, which reads this section directly from
// config.yaml to avoid an import cycle.
type LoggingConfig struct {
	Enabled    bool            `yaml:"enabled"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "peopleops",
		Version: "1.0.0",

		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8501,
			ShutdownTimeout: "5s",
		},

		Database: DatabaseConfig{
			Path: ".peopleops/hr_peopleops.db",
		},

		Documents: DocumentsConfig{
			UploadDir:        ".peopleops/documents/uploads",
			ChunkStore:       ".peopleops/documents/chunks.json",
			ChunkSizeWords:   250,
			ChunkOverlap:     50,
			MaxContextChunks: 5,
			MaxContextChars:  8000,
			Watch:            true,
		},

		Assistant: AssistantConfig{
			Enabled:    true,
			Model:      "gemini-2.0-flash-exp",
			Timeout:    "60s",
			MaxRetries: 3,
		},

		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadFromWorkspace loads the config rooted at a workspace directory.
func LoadFromWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, ".peopleops", "config.yaml"))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PEOPLEOPS_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("PEOPLEOPS_HOST"); host != "" {
		c.Server.Host = host
	}
	if path := os.Getenv("PEOPLEOPS_DB"); path != "" {
		c.Database.Path = path
	}
	if model := os.Getenv("PEOPLEOPS_MODEL"); model != "" {
		c.Assistant.Model = model
	}
	if os.Getenv("PEOPLEOPS_DEBUG") != "" {
		c.Logging.Enabled = true
		c.Logging.Level = "debug"
	}
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// URL returns the dashboard base URL.
func (c *Config) URL() string {
	return fmt.Sprintf("http://%s", c.Addr())
}

// AbsDatabasePath resolves the database path against a workspace root.
func (c *Config) AbsDatabasePath(workspace string) string {
	return resolve(workspace, c.Database.Path)
}

// AbsUploadDir resolves the document upload dir against a workspace root.
func (c *Config) AbsUploadDir(workspace string) string {
	return resolve(workspace, c.Documents.UploadDir)
}

// AbsChunkStore resolves the chunk store path against a workspace root.
func (c *Config) AbsChunkStore(workspace string) string {
	return resolve(workspace, c.Documents.ChunkStore)
}

func resolve(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

// GetAssistantTimeout returns the assistant timeout as a duration.
func (c *Config) GetAssistantTimeout() time.Duration {
	d, err := time.ParseDuration(c.Assistant.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetShutdownTimeout returns the server shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path not configured")
	}
	if c.Documents.ChunkSizeWords <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Documents.ChunkSizeWords)
	}
	if c.Documents.ChunkOverlap < 0 || c.Documents.ChunkOverlap >= c.Documents.ChunkSizeWords {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			c.Documents.ChunkOverlap, c.Documents.ChunkSizeWords)
	}
	if c.Assistant.Enabled && c.Assistant.Model == "" {
		return fmt.Errorf("assistant enabled but no model configured")
	}
	return nil
}
