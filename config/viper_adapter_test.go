/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testYAMLData = `
name: search
enabled: true
workers: 8
ratio: 0.75
window: 250ms
maxBodySize: 1M
tags: [a, b]
headers:
  X-Source: test
level: WARN
nested:
  timeout: 3s
  size: 64Ki
`

func newTestViperAdapter(t *testing.T) *ViperAdapter {
	t.Helper()
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testYAMLData), DataTypeYAML))
	return va
}

func TestViperAdapter_Getters(t *testing.T) {
	va := newTestViperAdapter(t)

	name, err := va.GetString("name")
	require.NoError(t, err)
	require.Equal(t, "search", name)

	enabled, err := va.GetBool("enabled")
	require.NoError(t, err)
	require.True(t, enabled)

	workers, err := va.GetInt("workers")
	require.NoError(t, err)
	require.Equal(t, 8, workers)

	ratio, err := va.GetFloat64("ratio")
	require.NoError(t, err)
	require.Equal(t, 0.75, ratio)

	window, err := va.GetDuration("window")
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, window)

	size, err := va.GetByteSize("maxBodySize")
	require.NoError(t, err)
	require.Equal(t, ByteSize(1024*1024), size)

	tags, err := va.GetStringSlice("tags")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tags)

	headers, err := va.GetStringMapString("headers")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"x-source": "test"}, headers) // viper lower-cases keys

	level, err := va.GetStringFromSet("level", []string{"error", "warn", "info"}, true)
	require.NoError(t, err)
	require.Equal(t, "WARN", level)

	_, err = va.GetStringFromSet("level", []string{"error", "warn", "info"}, false)
	require.EqualError(t, err, `level: unknown value "WARN", should be one of [error warn info]`)
}

func TestViperAdapter_MissingKeys(t *testing.T) {
	va := newTestViperAdapter(t)

	require.False(t, va.IsSet("missing"))
	require.Nil(t, va.Get("missing"))

	i, err := va.GetInt("missing")
	require.NoError(t, err)
	require.Zero(t, i)

	d, err := va.GetDuration("missing")
	require.NoError(t, err)
	require.Zero(t, d)

	m, err := va.GetStringMapString("missing")
	require.NoError(t, err)
	require.Equal(t, map[string]string{}, m)
}

func TestViperAdapter_InvalidValues(t *testing.T) {
	va := newTestViperAdapter(t)

	_, err := va.GetInt("name")
	require.ErrorContains(t, err, "name: ")

	_, err = va.GetDuration("name")
	require.ErrorContains(t, err, "name: ")

	va.Set("size", -10)
	_, err = va.GetByteSize("size")
	require.EqualError(t, err, "size: negative value is not allowed: -10")
}

func TestViperAdapter_Defaults(t *testing.T) {
	va := newTestViperAdapter(t)
	va.SetDefault("workers", 1)
	va.SetDefault("retries", 3)

	workers, err := va.GetInt("workers")
	require.NoError(t, err)
	require.Equal(t, 8, workers)

	retries, err := va.GetInt("retries")
	require.NoError(t, err)
	require.Equal(t, 3, retries)
	require.True(t, va.IsSet("retries"))
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	va := newTestViperAdapter(t)

	var nested struct {
		Timeout TimeDuration `mapstructure:"timeout"`
		Size    ByteSize     `mapstructure:"size"`
	}
	require.NoError(t, va.UnmarshalKey("nested", &nested))
	require.Equal(t, TimeDuration(3*time.Second), nested.Timeout)
	require.Equal(t, ByteSize(64*1024), nested.Size)

	var invalid struct {
		Timeout int `mapstructure:"timeout"`
	}
	require.ErrorContains(t, va.UnmarshalKey("nested", &invalid), "nested: ")
}

func TestViperAdapter_UseEnvVars(t *testing.T) {
	t.Setenv("UTILKIT_NESTED_TIMEOUT", "7s")

	va := newTestViperAdapter(t)
	va.UseEnvVars("utilkit")

	timeout, err := va.GetDuration("nested.timeout")
	require.NoError(t, err)
	require.Equal(t, 7*time.Second, timeout)
}

func TestViperAdapter_SetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"port":8080}}`), 0o600))

	va := NewViperAdapter()
	require.NoError(t, va.SetFromFile(path, DataTypeJSON))
	port, err := va.GetInt("server.port")
	require.NoError(t, err)
	require.Equal(t, 8080, port)

	require.Error(t, NewViperAdapter().SetFromFile(filepath.Join(t.TempDir(), "missing.json"), DataTypeJSON))
}
