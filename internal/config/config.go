// Package config handles sms-assistant configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/sms-assistant/config.yaml,
// /etc/sms-assistant/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sms-assistant", "config.yaml"))
	}

	paths = append(paths, "/etc/sms-assistant/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all sms-assistant configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Database string        `yaml:"database"` // SQLite file path
	OpenAI   OpenAIConfig  `yaml:"openai"`
	SerpAPI  SerpAPIConfig `yaml:"serpapi"`
	Twilio   TwilioConfig  `yaml:"twilio"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the webhook server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// OpenAIConfig defines the LLM provider settings. ExtractModel handles the
// question/answer extraction calls; ReplyModel generates the final reply.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"` // optional override for proxies
	ExtractModel string `yaml:"extract_model"`
	ReplyModel   string `yaml:"reply_model"`
}

// SerpAPIConfig defines the search provider settings.
type SerpAPIConfig struct {
	APIKey string `yaml:"api_key"`
}

// TwilioConfig defines outbound SMS delivery settings.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

// Load reads and parses the config file at path, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8035
	}
	if c.Database == "" {
		c.Database = "sms-assistant.db"
	}
	if c.OpenAI.ExtractModel == "" {
		c.OpenAI.ExtractModel = "gpt-3.5-turbo-16k"
	}
	if c.OpenAI.ReplyModel == "" {
		c.OpenAI.ReplyModel = "gpt-4"
	}
}

// Validate checks that required credentials are present. Missing keys are
// reported together so a fresh install can be fixed in one pass.
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key")
	}
	if c.SerpAPI.APIKey == "" {
		missing = append(missing, "serpapi.api_key")
	}
	if c.Twilio.AccountSID == "" {
		missing = append(missing, "twilio.account_sid")
	}
	if c.Twilio.AuthToken == "" {
		missing = append(missing, "twilio.auth_token")
	}
	if c.Twilio.FromNumber == "" {
		missing = append(missing, "twilio.from_number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config missing required keys: %v", missing)
	}
	return nil
}
