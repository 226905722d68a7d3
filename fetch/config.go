/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetch

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-utilkit/config"
	"github.com/acronis/go-utilkit/internal/ratelimit"
	"github.com/acronis/go-utilkit/retry"
)

// Default values of Config.
const (
	DefaultTimeout              = 30 * time.Second
	DefaultRateLimitAlg         = RateLimitAlgTokenBucket
	DefaultRateLimitBurst       = 10
	DefaultRateLimitMaxHosts    = 1000
	DefaultSlowRequestThreshold = time.Second
)

// DefaultRateLimit is the default rate of outgoing requests.
var DefaultRateLimit = Rate{Count: 10, Duration: time.Second}

// Rate-limiting algorithms.
const (
	RateLimitAlgTokenBucket   = ratelimit.AlgTokenBucket
	RateLimitAlgLeakyBucket   = ratelimit.AlgLeakyBucket
	RateLimitAlgSlidingWindow = ratelimit.AlgSlidingWindow
)

// Rate describes the frequency of requests. In configuration files it's written as N/(s|m|h), for example 10/s.
type Rate = ratelimit.Rate

// ParseRate parses a rate in the N/(s|m|h) format.
func ParseRate(s string) (Rate, error) {
	return ratelimit.ParseRate(s)
}

const (
	cfgKeyTimeout                    = "timeout"
	cfgKeyRetries                    = "retries"
	cfgKeyRateLimitsEnabled          = "rateLimits.enabled"
	cfgKeyRateLimitsAlg              = "rateLimits.alg"
	cfgKeyRateLimitsRate             = "rateLimits.rate"
	cfgKeyRateLimitsBurst            = "rateLimits.burst"
	cfgKeyRateLimitsPerHost          = "rateLimits.perHost"
	cfgKeyRateLimitsMaxHosts         = "rateLimits.maxHosts"
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
)

// RateLimitConfig represents configuration of the client-side rate limiting.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// Alg is a rate limiting algorithm, one of RateLimitAlgTokenBucket (default),
	// RateLimitAlgLeakyBucket and RateLimitAlgSlidingWindow.
	Alg  string `mapstructure:"alg" yaml:"alg" json:"alg"`
	Rate Rate   `mapstructure:"rate" yaml:"rate" json:"rate"`
	// Burst is a size of the token bucket or the number of requests allowed in excess of the rate
	// for the leaky bucket. Not used by the sliding window.
	Burst int `mapstructure:"burst" yaml:"burst" json:"burst"`
	// PerHost makes the limit apply to every remote host separately.
	PerHost bool `mapstructure:"perHost" yaml:"perHost" json:"perHost"`
	// MaxHosts limits the number of hosts tracked when PerHost is true.
	MaxHosts int `mapstructure:"maxHosts" yaml:"maxHosts" json:"maxHosts"`
}

// NewLimiter returns a limiter for the configuration or nil if rate limiting is disabled.
func (c *RateLimitConfig) NewLimiter() (ratelimit.Limiter, error) {
	if !c.Enabled {
		return nil, nil
	}
	maxKeys := 0
	if c.PerHost {
		maxKeys = c.MaxHosts
		if maxKeys == 0 {
			maxKeys = DefaultRateLimitMaxHosts
		}
	}
	return ratelimit.New(c.Alg, c.Rate, c.Burst, maxKeys)
}

// LoggerConfig represents configuration of the requests logging.
type LoggerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// SlowRequestThreshold is a duration after which a request is logged with the warning level.
	SlowRequestThreshold config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// Config represents a set of configuration parameters for Client.
type Config struct {
	// Timeout limits the time of a single Do call, including retries and waiting for the rate limiter.
	// Zero means no timeout.
	Timeout    config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Retries    retry.Config        `mapstructure:"retries" yaml:"retries" json:"retries"`
	RateLimits RateLimitConfig     `mapstructure:"rateLimits" yaml:"rateLimits" json:"rateLimits"`
	Log        LoggerConfig        `mapstructure:"logger" yaml:"logger" json:"logger"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the key prefix.
// This prefix will be used by config.Loader.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Timeout: config.TimeDuration(DefaultTimeout),
		Retries: *retry.NewDefaultConfig(""),
		RateLimits: RateLimitConfig{
			Alg:      DefaultRateLimitAlg,
			Rate:     DefaultRateLimit,
			Burst:    DefaultRateLimitBurst,
			MaxHosts: DefaultRateLimitMaxHosts,
		},
		Log: LoggerConfig{
			Enabled:              true,
			SlowRequestThreshold: config.TimeDuration(DefaultSlowRequestThreshold),
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	c.Retries.SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyRetries))
	dp.SetDefault(cfgKeyRateLimitsEnabled, false)
	dp.SetDefault(cfgKeyRateLimitsAlg, DefaultRateLimitAlg)
	dp.SetDefault(cfgKeyRateLimitsRate, DefaultRateLimit.String())
	dp.SetDefault(cfgKeyRateLimitsBurst, DefaultRateLimitBurst)
	dp.SetDefault(cfgKeyRateLimitsPerHost, false)
	dp.SetDefault(cfgKeyRateLimitsMaxHosts, DefaultRateLimitMaxHosts)
	dp.SetDefault(cfgKeyLoggerEnabled, true)
	dp.SetDefault(cfgKeyLoggerSlowRequestThreshold, DefaultSlowRequestThreshold.String())
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	timeout, err := dp.GetDuration(cfgKeyTimeout)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("cannot be negative"))
	}
	c.Timeout = config.TimeDuration(timeout)

	if err = c.Retries.Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyRetries)); err != nil {
		return err
	}
	if err = c.setRateLimits(dp); err != nil {
		return err
	}

	if c.Log.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	slowThreshold, err := dp.GetDuration(cfgKeyLoggerSlowRequestThreshold)
	if err != nil {
		return err
	}
	c.Log.SlowRequestThreshold = config.TimeDuration(slowThreshold)
	return nil
}

func (c *Config) setRateLimits(dp config.DataProvider) error {
	var err error
	if c.RateLimits.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil {
		return err
	}

	if c.RateLimits.Alg, err = dp.GetStringFromSet(cfgKeyRateLimitsAlg, []string{
		RateLimitAlgTokenBucket, RateLimitAlgLeakyBucket, RateLimitAlgSlidingWindow}, true); err != nil {
		return err
	}
	c.RateLimits.Alg = strings.ToLower(c.RateLimits.Alg)

	rateStr, err := dp.GetString(cfgKeyRateLimitsRate)
	if err != nil {
		return err
	}
	if c.RateLimits.Rate, err = ParseRate(rateStr); err != nil {
		return dp.WrapKeyErr(cfgKeyRateLimitsRate, err)
	}

	if c.RateLimits.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	minBurst := 1
	if c.RateLimits.Alg == RateLimitAlgLeakyBucket {
		minBurst = 0
	}
	if c.RateLimits.Burst < minBurst {
		return dp.WrapKeyErr(cfgKeyRateLimitsBurst, fmt.Errorf("should be >= %d", minBurst))
	}

	if c.RateLimits.PerHost, err = dp.GetBool(cfgKeyRateLimitsPerHost); err != nil {
		return err
	}
	if c.RateLimits.MaxHosts, err = dp.GetInt(cfgKeyRateLimitsMaxHosts); err != nil {
		return err
	}
	if c.RateLimits.MaxHosts < 1 {
		return dp.WrapKeyErr(cfgKeyRateLimitsMaxHosts, fmt.Errorf("should be >= 1"))
	}
	return nil
}
