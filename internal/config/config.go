package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxnlabs/bufsync/fixtures"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = "config.yaml"

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
		Encoding  string `yaml:"encoding"`
	} `yaml:"logger"`
	Memory struct {
		// Name labels the memfd backing guest memory (visible in /proc/<pid>/fd).
		Name      string `yaml:"name"`
		GuestSize int    `yaml:"guestSize"`
	} `yaml:"memory"`
	Metrics struct {
		ListenAddress string `yaml:"listenAddress"`
	} `yaml:"metrics"`
	Stress struct {
		Buffers    int           `yaml:"buffers"`
		Lockers    int           `yaml:"lockers"`
		Iterations int           `yaml:"iterations"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"stress"`
}

// GetDefaultConfigHome returns ~/.bufsync, or ./.bufsync when the home
// directory cannot be resolved.
func GetDefaultConfigHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bufsync"
	}
	return filepath.Join(home, ".bufsync")
}

// Default returns the values of the embedded config template.
func Default() *Config {
	var config Config
	if err := yaml.Unmarshal(fixtures.ConfigTemplate, &config); err != nil {
		panic(fmt.Sprintf("embedded config template is invalid: %v", err))
	}
	return &config
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// LoadConfigOrDefault loads path, falling back to Default when the file
// does not exist.
func LoadConfigOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func (c *Config) Validate() error {
	if c.Memory.GuestSize <= 0 {
		return fmt.Errorf("memory.guestSize must be positive, got %d", c.Memory.GuestSize)
	}
	if c.Stress.Lockers < 0 || c.Stress.Buffers < 0 || c.Stress.Iterations < 0 {
		return errors.New("stress counts must not be negative")
	}
	return nil
}

// WriteTemplate writes the default config into home unless a config file
// already exists there.
func WriteTemplate(home string) (string, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(home, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config already exists: %s", path)
	}
	return path, os.WriteFile(path, fixtures.ConfigTemplate, 0o644)
}
