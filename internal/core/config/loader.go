package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Social.BaseURL == "" {
		cfg.Social.BaseURL = "https://api.x.com"
	}
	if cfg.Social.TokenURL == "" {
		cfg.Social.TokenURL = "https://api.x.com/2/oauth2/token"
	}
	if cfg.Social.Timeout == 0 {
		cfg.Social.Timeout = Duration(10 * time.Second)
	}
	if cfg.Sync.MaxItems == 0 {
		cfg.Sync.MaxItems = 20
	}
	if cfg.Sync.InterCallDelay == 0 {
		cfg.Sync.InterCallDelay = Duration(2 * time.Second)
	}

	return &cfg, nil
}
