package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config stores the settings seqex keeps between runs. Sequences themselves
// are not persisted, only the knobs around them.
type Config struct {
	OutputPort string `json:"outputPort,omitempty"`
	InputPort  string `json:"inputPort,omitempty"` // external clock master, if any
	BPM        int    `json:"bpm,omitempty"`
	Channel    int    `json:"channel,omitempty"`
	NoteLength string `json:"noteLength,omitempty"`
	SendClock  bool   `json:"sendClock,omitempty"` // forward clock/transport bytes to the output
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BPM:        120,
		NoteLength: "1/4",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "seqex"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
