// Package config persists the user's scriptpad settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the user's persistent configuration.
type Config struct {
	URL         string `json:"url,omitempty"`          // Script service base URL
	Token       string `json:"token,omitempty"`        // API token
	Org         string `json:"org,omitempty"`          // Organization name used for create calls
	Editor      string `json:"editor,omitempty"`       // Editor command; falls back to $VISUAL/$EDITOR
	SandboxMode string `json:"sandbox_mode,omitempty"` // docker, host, or auto
	DockerImage string `json:"docker_image,omitempty"` // Override image for local runs
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a configuration manager rooted at the user config dir.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(configDir, "scriptpad")}, nil
}

// Dir returns the scriptpad config directory (also used for the local cache).
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk. A missing file yields an empty
// Config and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration with restricted permissions, since it holds
// the API token.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// ApplyEnv overlays environment variables onto the loaded configuration.
// Environment values win so shell overrides work without editing the file.
func (cfg *Config) ApplyEnv() {
	if v := os.Getenv("SCRIPTPAD_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("SCRIPTPAD_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("SCRIPTPAD_ORG"); v != "" {
		cfg.Org = v
	}
	if v := os.Getenv("SCRIPTPAD_EDITOR"); v != "" {
		cfg.Editor = v
	}
	if v := os.Getenv("SCRIPTPAD_SANDBOX_MODE"); v != "" {
		cfg.SandboxMode = v
	}
	if v := os.Getenv("SCRIPTPAD_DOCKER_IMAGE"); v != "" {
		cfg.DockerImage = v
	}
}
