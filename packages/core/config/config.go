package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the hookspec configuration
type Config struct {
	DefaultEnvironment     string                       `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Timeout                int                          `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds per step
	Concurrency            int                          `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	RateLimit              float64                      `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // cases started per second
	FollowRedirects        *bool                        `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects           int                          `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL            *bool                        `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy                  string                       `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	BaseURL                string                       `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Headers                map[string]string            `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Reporters              []string                     `json:"reporters,omitempty" yaml:"reporters,omitempty"`
	OutputDir              string                       `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	Bail                   *bool                        `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose                *bool                        `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor                *bool                        `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	TeardownOnSetupFailure *bool                        `json:"teardownOnSetupFailure,omitempty" yaml:"teardownOnSetupFailure,omitempty"`
	EnvPrefix              string                       `json:"envPrefix,omitempty" yaml:"envPrefix,omitempty"`
	DotEnv                 []string                     `json:"dotenv,omitempty" yaml:"dotenv,omitempty"`
	LogLevel               string                       `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat              string                       `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
	Environments           map[string]map[string]any    `json:"environments,omitempty" yaml:"environments,omitempty"`
	Databases              map[string]map[string]string `json:"databases,omitempty" yaml:"databases,omitempty"` // db -> role -> DSN
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetTeardownOnSetupFailure reports whether suite teardown hooks run after a
// failed suite setup, defaulting to true
func (c *Config) GetTeardownOnSetupFailure() bool {
	return getBool(c.TeardownOnSetupFailure, true)
}

// StepTimeout returns Timeout as a duration. Zero means no step timeout.
func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".hookspec.json",
	"hookspec.json",
	".hookspec.yaml",
	".hookspec.yml",
	"hookspec.yaml",
	"hookspec.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate rejects values no run can use.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit must not be negative, got %v", c.RateLimit)
	}
	for db, roles := range c.Databases {
		if len(roles) == 0 {
			return fmt.Errorf("database %q has no roles", db)
		}
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.EnvPrefix != "" {
		result.EnvPrefix = other.EnvPrefix
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		result.LogFormat = other.LogFormat
	}
	if len(other.DotEnv) > 0 {
		result.DotEnv = other.DotEnv
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.TeardownOnSetupFailure != nil {
		result.TeardownOnSetupFailure = other.TeardownOnSetupFailure
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	if len(other.Environments) > 0 {
		envs := make(map[string]map[string]any, len(result.Environments)+len(other.Environments))
		for k, v := range result.Environments {
			envs[k] = v
		}
		for k, v := range other.Environments {
			envs[k] = v
		}
		result.Environments = envs
	}

	if len(other.Databases) > 0 {
		dbs := make(map[string]map[string]string, len(result.Databases)+len(other.Databases))
		for k, v := range result.Databases {
			dbs[k] = v
		}
		for k, v := range other.Databases {
			dbs[k] = v
		}
		result.Databases = dbs
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig saves the configuration to a file. The format follows the
// file extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
