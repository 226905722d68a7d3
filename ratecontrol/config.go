/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"fmt"
	"time"

	"github.com/acronis/go-utilkit/config"
)

// DefaultWindow is the default window of debouncers and throttlers created from Config.
const DefaultWindow = 100 * time.Millisecond

const (
	cfgKeyWindow   = "window"
	cfgKeyLeading  = "leading"
	cfgKeyTrailing = "trailing"
	cfgKeyMaxKeys  = "maxKeys"
)

// Config represents a set of configuration parameters for a debouncer or a throttler.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Window is a debounce delay or a throttle interval.
	Window config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`

	// Leading makes the action fire on the first call of a burst.
	Leading bool `mapstructure:"leading" yaml:"leading" json:"leading"`

	// Trailing makes the action fire when the window expires after the last call of a burst.
	Trailing bool `mapstructure:"trailing" yaml:"trailing" json:"trailing"`

	// MaxKeys limits the number of keys tracked by keyed debouncers and throttlers.
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	var opts configOptions
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values (trailing-edge debounce semantics).
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Window = config.TimeDuration(DefaultWindow)
	cfg.Trailing = true
	cfg.MaxKeys = DefaultMaxKeys
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyWindow, DefaultWindow.String())
	dp.SetDefault(cfgKeyLeading, false)
	dp.SetDefault(cfgKeyTrailing, true)
	dp.SetDefault(cfgKeyMaxKeys, DefaultMaxKeys)
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	window, err := dp.GetDuration(cfgKeyWindow)
	if err != nil {
		return err
	}
	if window < 0 {
		return dp.WrapKeyErr(cfgKeyWindow, fmt.Errorf("cannot be negative"))
	}
	c.Window = config.TimeDuration(window)

	if c.Leading, err = dp.GetBool(cfgKeyLeading); err != nil {
		return err
	}
	if c.Trailing, err = dp.GetBool(cfgKeyTrailing); err != nil {
		return err
	}

	if c.MaxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if c.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyMaxKeys, fmt.Errorf("cannot be negative"))
	}
	return nil
}

// Options returns edge options.
func (c *Config) Options() Options {
	return Options{Leading: c.Leading, Trailing: c.Trailing}
}

// DebouncerOpts returns options for NewDebouncerWithOpts.
func (c *Config) DebouncerOpts() DebouncerOpts {
	return DebouncerOpts{Options: c.Options()}
}

// ThrottlerOpts returns options for NewThrottlerWithOpts.
func (c *Config) ThrottlerOpts() ThrottlerOpts {
	return ThrottlerOpts{Options: c.Options()}
}

// KeyedOpts returns options for NewKeyedDebouncer and NewKeyedThrottler.
func (c *Config) KeyedOpts() KeyedOpts {
	return KeyedOpts{MaxKeys: c.MaxKeys}
}
