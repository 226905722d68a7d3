/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-utilkit/config"
)

func TestConfig_Load(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		opts    []ConfigOption
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			data: ``,
			want: NewDefaultConfig(),
		},
		{
			name: "file output",
			data: `
log:
  level: DEBUG
  format: text
  output: file
  nocolor: true
  addCaller: true
  file:
    path: /var/log/app.log
    rotation:
      compress: true
      maxSize: 100M
      maxBackups: 3
      maxAgeDays: 7
  error:
    noVerbose: true
  masking:
    enabled: true
    useDefaultRules: false
    rules:
      - field: session_id
        formats: [urlencoded, json]
`,
			want: &Config{
				Level:     LevelDebug,
				Format:    FormatText,
				Output:    OutputFile,
				NoColor:   true,
				AddCaller: true,
				File: FileOutputConfig{
					Path: "/var/log/app.log",
					Rotation: FileRotationConfig{
						Compress:   true,
						MaxSize:    100 * 1024 * 1024,
						MaxBackups: 3,
						MaxAgeDays: 7,
					},
				},
				Error: ErrorConfig{NoVerbose: true, VerboseSuffix: defaultErrorVerboseSuffix},
				Masking: MaskingConfig{
					Enabled: true,
					Rules: []MaskingRuleConfig{
						{Field: "session_id", Formats: []MaskFormat{MaskFormatURLEncoded, MaskFormatJSON}},
					},
				},
			},
		},
		{
			name: "custom key prefix",
			data: "app:\n  logging:\n    level: warn\n",
			opts: []ConfigOption{WithKeyPrefix("app.logging")},
			want: func() *Config {
				c := NewDefaultConfig(WithKeyPrefix("app.logging"))
				c.Level = LevelWarn
				return c
			}(),
		},
		{
			name:    "unknown level",
			data:    "log:\n  level: trace\n",
			wantErr: `log.level: unknown value "trace", should be one of [error warn info debug]`,
		},
		{
			name:    "file output without path",
			data:    "log:\n  output: file\n",
			wantErr: "log.file.path: cannot be empty when output is file",
		},
		{
			name:    "too small rotation size",
			data:    "log:\n  output: file\n  file:\n    path: app.log\n    rotation:\n      maxSize: 10K\n",
			wantErr: "log.file.rotation.maxSize: should be >= 1M",
		},
		{
			name:    "negative max age",
			data:    "log:\n  output: file\n  file:\n    path: app.log\n    rotation:\n      maxAgeDays: -1\n",
			wantErr: "log.file.rotation.maxAgeDays: should be >= 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.opts...)
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.data), config.DataTypeYAML, cfg)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.want.Output != OutputFile {
				// Rotation settings are read only for the file output.
				cfg.File = tt.want.File
			}
			require.Equal(t, tt.want, cfg)
		})
	}
}

func TestConfig_YAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(`
level: error
output: file
file:
  path: app.log
  rotation:
    maxSize: 1Gi
`), &cfg))
	require.Equal(t, LevelError, cfg.Level)
	require.Equal(t, config.ByteSize(1024*1024*1024), cfg.File.Rotation.MaxSize)
	require.Equal(t, "log", cfg.KeyPrefix())
}
