package runner

import (
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/config"
)

// DefaultConcurrency is the default number of cases run at once.
const DefaultConcurrency = 5

// Config controls how a Runner executes suites.
type Config struct {
	// Concurrency bounds the number of cases running at once.
	Concurrency int
	// RateLimit paces case dispatch in cases per second. Zero disables it.
	RateLimit float64
	// StepTimeout applies to steps that declare no timeout of their own.
	StepTimeout time.Duration
	// Bail stops scheduling new cases after the first case that did not pass.
	Bail       bool
	NameFilter string
	TagsFilter []string
	BaseURL    string
	BaseDir    string

	// TeardownOnSetupFailure runs suite teardown hooks even when suite setup
	// failed.
	TeardownOnSetupFailure bool
}

// DefaultConfig returns the config used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:            DefaultConcurrency,
		TeardownOnSetupFailure: true,
	}
}

// FromConfig maps project configuration onto runner settings.
func FromConfig(c *config.Config) *Config {
	cfg := DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	cfg.RateLimit = c.RateLimit
	cfg.StepTimeout = c.StepTimeout()
	cfg.Bail = c.GetBail()
	cfg.BaseURL = c.BaseURL
	cfg.TeardownOnSetupFailure = c.GetTeardownOnSetupFailure()
	return cfg
}
