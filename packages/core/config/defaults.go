package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment:     "",
		Timeout:                30000, // 30 seconds
		Concurrency:            5,
		MaxRedirects:           10,
		FollowRedirects:        BoolPtr(true),
		ValidateSSL:            BoolPtr(true),
		TeardownOnSetupFailure: BoolPtr(true),
		Reporters:              []string{"console"},
		DotEnv:                 []string{".env"},
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		c.Timeout == defaults.Timeout &&
		c.Concurrency == defaults.Concurrency &&
		c.RateLimit == defaults.RateLimit &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.GetTeardownOnSetupFailure() == defaults.GetTeardownOnSetupFailure() &&
		c.GetBail() == defaults.GetBail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.Proxy == defaults.Proxy &&
		c.BaseURL == defaults.BaseURL &&
		c.OutputDir == defaults.OutputDir &&
		len(c.Headers) == 0 &&
		len(c.Environments) == 0 &&
		len(c.Databases) == 0
}
