// Package config loads the API server configuration from a YAML file with
// environment overrides for the deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address            string            `yaml:"address" validate:"required"`
	DataService        DataServiceConfig `yaml:"data_service" validate:"required"`
	Broker             BrokerConfig      `yaml:"broker"`
	Valkey             ValkeyConfig      `yaml:"valkey"`
	NonceExpirySeconds int64             `yaml:"nonce_expiry_seconds"`
}

type DataServiceConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	APIKey  string `yaml:"api_key"`
}

type BrokerConfig struct {
	HeartbeatSeconds int64 `yaml:"heartbeat_seconds"`
	TimeoutSeconds   int64 `yaml:"timeout_seconds"`
}

// ValkeyConfig switches the session registry and nonce service to Valkey
// when an address is set. Without it everything stays in process memory,
// which limits the deployment to a single instance.
type ValkeyConfig struct {
	Address           string `yaml:"address"`
	SessionTTLSeconds int64  `yaml:"session_ttl_seconds"`
}

// Load reads the config file, applies environment overrides and validates
// the result. A missing file is not an error when the environment carries
// the required values.
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config file: %w", err)
		}
	}

	applyEnv(&config)

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("DEMOSHOP_ADDRESS"); v != "" {
		config.Address = v
	}
	if v := os.Getenv("VDS_BASE_URL"); v != "" {
		config.DataService.BaseURL = v
	}
	if v := os.Getenv("VDS_API_KEY"); v != "" {
		config.DataService.APIKey = v
	}
	if v := os.Getenv("VALKEY_ADDRESS"); v != "" {
		config.Valkey.Address = v
	}
}

// GetEnv returns the value of the environment variable or the default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
