/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acronis/go-utilkit/config"
)

const cfgDefaultKeyPrefix = "log"

const (
	cfgKeyLevel                        = "level"
	cfgKeyFormat                       = "format"
	cfgKeyOutput                       = "output"
	cfgKeyNoColor                      = "nocolor"
	cfgKeyAddCaller                    = "addCaller"
	cfgKeyFilePath                     = "file.path"
	cfgKeyFileRotationCompress         = "file.rotation.compress"
	cfgKeyFileRotationMaxSize          = "file.rotation.maxSize"
	cfgKeyFileRotationMaxBackups       = "file.rotation.maxBackups"
	cfgKeyFileRotationMaxAgeDays       = "file.rotation.maxAgeDays"
	cfgKeyFileRotationLocalTimeInNames = "file.rotation.localTimeInNames"
	cfgKeyErrorNoVerbose               = "error.noVerbose"
	cfgKeyErrorVerboseSuffix           = "error.verboseSuffix"
	cfgKeyMaskingEnabled               = "masking.enabled"
	cfgKeyMaskingUseDefaultRules       = "masking.useDefaultRules"
	cfgKeyMaskingRules                 = "masking.rules"
)

// Default and restriction values.
const (
	DefaultFileRotationMaxSizeBytes = 250 * 1024 * 1024
	MinFileRotationMaxSizeBytes     = 1024 * 1024
	DefaultFileRotationMaxBackups   = 10
	MinFileRotationMaxBackups       = 1

	defaultErrorVerboseSuffix = "_verbose"
)

// Level is a logging level.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format is a format of log entries.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output is a destination of log entries.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config represents a set of configuration parameters for logging.
// It may be filled by config.Loader or decoded with json/yaml directly.
type Config struct {
	Level   Level  `mapstructure:"level" yaml:"level" json:"level"`
	Format  Format `mapstructure:"format" yaml:"format" json:"format"`
	Output  Output `mapstructure:"output" yaml:"output" json:"output"`
	NoColor bool   `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`

	// AddCaller adds the "caller" field (package/file:line) to each entry.
	AddCaller bool `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`

	File    FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`
	Error   ErrorConfig      `mapstructure:"error" yaml:"error" json:"error"`
	Masking MaskingConfig    `mapstructure:"masking" yaml:"masking" json:"masking"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// FileOutputConfig is a configuration of the file output.
// The path may contain {{starttime}} and {{pid}} placeholders.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// FileRotationConfig is a configuration of log file rotation.
type FileRotationConfig struct {
	Compress         bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
	MaxSize          config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups       int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays       int             `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	LocalTimeInNames bool            `mapstructure:"localTimeInNames" yaml:"localTimeInNames" json:"localTimeInNames"`
}

// ErrorConfig determines how errors are logged.
// Unless NoVerbose is set, errors implementing fmt.Formatter get one more field ("error" + VerboseSuffix)
// with the "%+v" representation (e.g., with a stack trace).
type ErrorConfig struct {
	NoVerbose     bool   `mapstructure:"noVerbose" yaml:"noVerbose" json:"noVerbose"`
	VerboseSuffix string `mapstructure:"verboseSuffix" yaml:"verboseSuffix" json:"verboseSuffix"`
}

// MaskingConfig is a configuration of secrets masking.
type MaskingConfig struct {
	Enabled         bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	UseDefaultRules bool                `mapstructure:"useDefaultRules" yaml:"useDefaultRules" json:"useDefaultRules"`
	Rules           []MaskingRuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`
}

// ConfigOption is a functional option for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix sets the key prefix used by config.Loader ("log" by default).
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

func makeConfigOptions(options []ConfigOption) configOptions {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// NewConfig creates a new empty Config.
func NewConfig(options ...ConfigOption) *Config {
	return &Config{keyPrefix: makeConfigOptions(options).keyPrefix}
}

// NewDefaultConfig creates a new Config with default values: info level, JSON to stdout, masking with default rules.
func NewDefaultConfig(options ...ConfigOption) *Config {
	return &Config{
		keyPrefix: makeConfigOptions(options).keyPrefix,
		Level:     LevelInfo,
		Format:    FormatJSON,
		Output:    OutputStdout,
		File: FileOutputConfig{Rotation: FileRotationConfig{
			MaxSize:    DefaultFileRotationMaxSizeBytes,
			MaxBackups: DefaultFileRotationMaxBackups,
		}},
		Error:   ErrorConfig{VerboseSuffix: defaultErrorVerboseSuffix},
		Masking: MaskingConfig{UseDefaultRules: true},
	}
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStdout))
	dp.SetDefault(cfgKeyFileRotationMaxSize, config.ByteSize(DefaultFileRotationMaxSizeBytes).String())
	dp.SetDefault(cfgKeyFileRotationMaxBackups, DefaultFileRotationMaxBackups)
	dp.SetDefault(cfgKeyErrorVerboseSuffix, defaultErrorVerboseSuffix)
	dp.SetDefault(cfgKeyMaskingUseDefaultRules, true)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := dp.GetStringFromSet(cfgKeyLevel, []string{
		string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}, true)
	if err != nil {
		return err
	}
	c.Level = Level(strings.ToLower(level))

	format, err := dp.GetStringFromSet(cfgKeyFormat, []string{string(FormatJSON), string(FormatText)}, true)
	if err != nil {
		return err
	}
	c.Format = Format(strings.ToLower(format))

	output, err := dp.GetStringFromSet(cfgKeyOutput, []string{
		string(OutputStdout), string(OutputStderr), string(OutputFile)}, true)
	if err != nil {
		return err
	}
	c.Output = Output(strings.ToLower(output))

	if c.NoColor, err = dp.GetBool(cfgKeyNoColor); err != nil {
		return err
	}
	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}
	if c.Error.NoVerbose, err = dp.GetBool(cfgKeyErrorNoVerbose); err != nil {
		return err
	}
	if c.Error.VerboseSuffix, err = dp.GetString(cfgKeyErrorVerboseSuffix); err != nil {
		return err
	}
	if c.Output == OutputFile {
		if err = c.setFileOutput(dp); err != nil {
			return err
		}
	}
	return c.setMasking(dp)
}

func (c *Config) setFileOutput(dp config.DataProvider) (err error) {
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.File.Path == "" {
		return dp.WrapKeyErr(cfgKeyFilePath, errors.New("cannot be empty when output is file"))
	}
	rotation := &c.File.Rotation
	if rotation.Compress, err = dp.GetBool(cfgKeyFileRotationCompress); err != nil {
		return err
	}
	if rotation.MaxSize, err = dp.GetByteSize(cfgKeyFileRotationMaxSize); err != nil {
		return err
	}
	if rotation.MaxSize < MinFileRotationMaxSizeBytes {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxSize,
			fmt.Errorf("should be >= %s", config.ByteSize(MinFileRotationMaxSizeBytes)))
	}
	if rotation.MaxBackups, err = dp.GetInt(cfgKeyFileRotationMaxBackups); err != nil {
		return err
	}
	if rotation.MaxBackups < MinFileRotationMaxBackups {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxBackups, fmt.Errorf("should be >= %d", MinFileRotationMaxBackups))
	}
	if rotation.MaxAgeDays, err = dp.GetInt(cfgKeyFileRotationMaxAgeDays); err != nil {
		return err
	}
	if rotation.MaxAgeDays < 0 {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxAgeDays, errors.New("should be >= 0"))
	}
	rotation.LocalTimeInNames, err = dp.GetBool(cfgKeyFileRotationLocalTimeInNames)
	return err
}

func (c *Config) setMasking(dp config.DataProvider) (err error) {
	if c.Masking.Enabled, err = dp.GetBool(cfgKeyMaskingEnabled); err != nil {
		return err
	}
	if c.Masking.UseDefaultRules, err = dp.GetBool(cfgKeyMaskingUseDefaultRules); err != nil {
		return err
	}
	c.Masking.Rules = nil
	return dp.UnmarshalKey(cfgKeyMaskingRules, &c.Masking.Rules)
}
