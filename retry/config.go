/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"fmt"
	"time"

	"github.com/acronis/go-utilkit/config"
)

// Default values of Config.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
	DefaultMultiplier      = 2.0
)

const (
	cfgKeyEnabled         = "enabled"
	cfgKeyMaxAttempts     = "maxAttempts"
	cfgKeyInitialInterval = "initialInterval"
	cfgKeyMaxInterval     = "maxInterval"
	cfgKeyMultiplier      = "multiplier"
)

// Config represents a set of configuration parameters for retries with exponential backoff.
type Config struct {
	Enabled         bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxAttempts     int                 `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval config.TimeDuration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`
	MaxInterval     config.TimeDuration `mapstructure:"maxInterval" yaml:"maxInterval" json:"maxInterval"`
	Multiplier      float64             `mapstructure:"multiplier" yaml:"multiplier" json:"multiplier"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config. All configuration parameters are nested under keyPrefix.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values. Retries are enabled.
func NewDefaultConfig(keyPrefix string) *Config {
	return &Config{
		Enabled:         true,
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: config.TimeDuration(DefaultInitialInterval),
		MaxInterval:     config.TimeDuration(DefaultMaxInterval),
		Multiplier:      DefaultMultiplier,
		keyPrefix:       keyPrefix,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, true)
	dp.SetDefault(cfgKeyMaxAttempts, DefaultMaxAttempts)
	dp.SetDefault(cfgKeyInitialInterval, DefaultInitialInterval.String())
	dp.SetDefault(cfgKeyMaxInterval, DefaultMaxInterval.String())
	dp.SetDefault(cfgKeyMultiplier, DefaultMultiplier)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}

	if c.MaxAttempts, err = dp.GetInt(cfgKeyMaxAttempts); err != nil {
		return err
	}
	if c.MaxAttempts < 1 {
		return dp.WrapKeyErr(cfgKeyMaxAttempts, fmt.Errorf("should be >= 1"))
	}

	initialInterval, err := dp.GetDuration(cfgKeyInitialInterval)
	if err != nil {
		return err
	}
	if initialInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyInitialInterval, fmt.Errorf("should be positive"))
	}
	c.InitialInterval = config.TimeDuration(initialInterval)

	maxInterval, err := dp.GetDuration(cfgKeyMaxInterval)
	if err != nil {
		return err
	}
	if maxInterval < initialInterval {
		return dp.WrapKeyErr(cfgKeyMaxInterval, fmt.Errorf("should be >= %s", cfgKeyInitialInterval))
	}
	c.MaxInterval = config.TimeDuration(maxInterval)

	if c.Multiplier, err = dp.GetFloat64(cfgKeyMultiplier); err != nil {
		return err
	}
	if c.Multiplier < 1 {
		return dp.WrapKeyErr(cfgKeyMultiplier, fmt.Errorf("should be >= 1"))
	}
	return nil
}

// Policy returns the exponential backoff policy described by the configuration,
// or NoRetryPolicy if retries are disabled.
func (c *Config) Policy() Policy {
	if !c.Enabled {
		return NoRetryPolicy
	}
	return ExponentialBackoffPolicy{
		InitialInterval: time.Duration(c.InitialInterval),
		MaxInterval:     time.Duration(c.MaxInterval),
		Multiplier:      c.Multiplier,
		MaxAttempts:     c.MaxAttempts,
	}
}
