/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetch

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-utilkit/config"
	"github.com/acronis/go-utilkit/retry"
)

func TestConfig_Load(t *testing.T) {
	allValues := `
fetch:
  timeout: 10s
  retries:
    enabled: false
    maxAttempts: 5
    initialInterval: 100ms
    maxInterval: 2s
    multiplier: 3
  rateLimits:
    enabled: true
    alg: Sliding_Window
    rate: 100/m
    burst: 5
    perHost: true
    maxHosts: 50
  logger:
    enabled: false
    slowRequestThreshold: 500ms
`
	tests := []struct {
		name    string
		data    string
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			data: "{}",
			want: func() *Config {
				cfg := NewDefaultConfig()
				cfg.keyPrefix = "fetch"
				return cfg
			}(),
		},
		{
			name: "all values",
			data: allValues,
			want: &Config{
				Timeout: config.TimeDuration(10 * time.Second),
				Retries: retry.Config{
					MaxAttempts:     5,
					InitialInterval: config.TimeDuration(100 * time.Millisecond),
					MaxInterval:     config.TimeDuration(2 * time.Second),
					Multiplier:      3,
				},
				RateLimits: RateLimitConfig{
					Enabled:  true,
					Alg:      RateLimitAlgSlidingWindow,
					Rate:     Rate{Count: 100, Duration: time.Minute},
					Burst:    5,
					PerHost:  true,
					MaxHosts: 50,
				},
				Log:        LoggerConfig{SlowRequestThreshold: config.TimeDuration(500 * time.Millisecond)},
				keyPrefix:  "fetch",
			},
		},
		{
			name:    "negative timeout",
			data:    "fetch:\n  timeout: -1s\n",
			wantErr: "fetch.timeout: cannot be negative",
		},
		{
			name:    "invalid retries",
			data:    "fetch:\n  retries:\n    maxAttempts: 0\n",
			wantErr: "fetch.retries.maxAttempts: should be >= 1",
		},
		{
			name: "invalid rate",
			data: "fetch:\n  rateLimits:\n    rate: 10\n",
			wantErr: `fetch.rateLimits.rate: incorrect format for rate "10", ` +
				`should be N/(s|m|h), for example 10/s, 100/m, 1000/h`,
		},
		{
			name:    "unknown algorithm",
			data:    "fetch:\n  rateLimits:\n    alg: fixed_window\n",
			wantErr: `fetch.rateLimits.alg: unknown value "fixed_window", should be one of [token_bucket leaky_bucket sliding_window]`,
		},
		{
			name:    "zero burst",
			data:    "fetch:\n  rateLimits:\n    burst: 0\n",
			wantErr: "fetch.rateLimits.burst: should be >= 1",
		},
		{
			name:    "leaky bucket with zero burst and zero max hosts",
			data:    "fetch:\n  rateLimits:\n    alg: leaky_bucket\n    burst: 0\n    maxHosts: 0\n",
			wantErr: "fetch.rateLimits.maxHosts: should be >= 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfigWithKeyPrefix("fetch")
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.data), config.DataTypeYAML, cfg)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg)
		})
	}
}

func TestRateLimitConfig_NewLimiter(t *testing.T) {
	lim, err := (&RateLimitConfig{Rate: DefaultRateLimit, Burst: 1}).NewLimiter()
	require.NoError(t, err)
	require.Nil(t, lim)

	for _, alg := range []string{RateLimitAlgTokenBucket, RateLimitAlgLeakyBucket, RateLimitAlgSlidingWindow} {
		lim, err = (&RateLimitConfig{Enabled: true, Alg: alg, Rate: DefaultRateLimit, Burst: 1, PerHost: true}).NewLimiter()
		require.NoError(t, err, alg)
		require.NotNil(t, lim, alg)
	}

	_, err = (&RateLimitConfig{Enabled: true, Rate: DefaultRateLimit}).NewLimiter()
	require.EqualError(t, err, "burst should be >= 1")
}
