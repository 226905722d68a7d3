/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"bytes"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-utilkit/config"
)

func TestConfig_Load(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			data: "{}",
			want: NewDefaultConfig("retry"),
		},
		{
			name: "all values",
			data: "retry:\n  enabled: false\n  maxAttempts: 7\n  initialInterval: 1s\n  maxInterval: 1m\n  multiplier: 1.5\n",
			want: &Config{
				MaxAttempts:     7,
				InitialInterval: config.TimeDuration(time.Second),
				MaxInterval:     config.TimeDuration(time.Minute),
				Multiplier:      1.5,
				keyPrefix:       "retry",
			},
		},
		{
			name:    "zero max attempts",
			data:    "retry:\n  maxAttempts: 0\n",
			wantErr: "retry.maxAttempts: should be >= 1",
		},
		{
			name:    "zero initial interval",
			data:    "retry:\n  initialInterval: 0s\n",
			wantErr: "retry.initialInterval: should be positive",
		},
		{
			name:    "max interval less than initial",
			data:    "retry:\n  initialInterval: 10s\n  maxInterval: 1s\n",
			wantErr: "retry.maxInterval: should be >= initialInterval",
		},
		{
			name:    "small multiplier",
			data:    "retry:\n  multiplier: 0.5\n",
			wantErr: "retry.multiplier: should be >= 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("retry")
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

func TestConfig_Policy(t *testing.T) {
	cfg := NewDefaultConfig("")
	require.Equal(t, ExponentialBackoffPolicy{
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		Multiplier:      DefaultMultiplier,
		MaxAttempts:     DefaultMaxAttempts,
	}, cfg.Policy())

	cfg.Enabled = false
	calls := 0
	p := cfg.Policy()
	bf := p.NewBackOff()
	for d := bf.NextBackOff(); d != backoff.Stop && calls < 10; d = bf.NextBackOff() {
		calls++
	}
	require.Zero(t, calls)
}
