// Package config loads the optional per-user defaults file. Flags and
// environment variables always win; the file only fills what they leave
// blank.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File represents the structure of ~/.newsharvest/config.yaml.
type File struct {
	Profiles string `yaml:"profiles"`
	Out      string `yaml:"out"`
	Journal  string `yaml:"journal"`
	Kafka    struct {
		Brokers string `yaml:"brokers"`
		Topic   string `yaml:"topic"`
	} `yaml:"kafka"`
	Elasticsearch struct {
		Addr  string `yaml:"addr"`
		Index string `yaml:"index"`
	} `yaml:"elasticsearch"`
	Log struct {
		Path  string `yaml:"path"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads ~/.newsharvest/config.yaml. A missing file is not an
// error; a present but unparseable one is.
func Load() (*File, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return LoadPath(filepath.Join(homeDir, ".newsharvest", "config.yaml"))
}

// LoadPath reads a defaults file from an explicit location.
func LoadPath(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Or returns value unless it is empty, then the file-supplied fallback.
func Or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
