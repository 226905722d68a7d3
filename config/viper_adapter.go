/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperAdapter is a DataProvider backed by viper. Values are converted with spf13/cast.
type ViperAdapter struct {
	viper *viper.Viper
}

var _ DataProvider = (*ViperAdapter)(nil)

// NewViperAdapter creates a new ViperAdapter with an empty viper instance.
func NewViperAdapter() *ViperAdapter {
	return &ViperAdapter{viper: viper.New()}
}

// UseEnvVars makes values of environment variables override the configuration data.
// The variable name is the upper-cased key with dots replaced by underscores, prefixed with "<PREFIX>_"
// (e.g., "debounce.window" is looked up in "MYAPP_DEBOUNCE_WINDOW" for the "myapp" prefix).
func (va *ViperAdapter) UseEnvVars(prefix string) {
	va.viper.SetEnvPrefix(prefix)
	va.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	va.viper.AutomaticEnv()
}

// Set overrides the value of the key.
func (va *ViperAdapter) Set(key string, value interface{}) {
	va.viper.Set(key, value)
}

// SetDefault sets the value used when the key is set nowhere else.
func (va *ViperAdapter) SetDefault(key string, value interface{}) {
	va.viper.SetDefault(key, value)
}

// SetFromFile reads configuration data from the file.
func (va *ViperAdapter) SetFromFile(path string, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	va.viper.SetConfigFile(path)
	return va.viper.ReadInConfig()
}

// SetFromReader reads configuration data from the reader.
func (va *ViperAdapter) SetFromReader(reader io.Reader, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	return va.viper.ReadConfig(reader)
}

// IsSet reports whether the key is set in any source (defaults included). Keys are case-insensitive.
func (va *ViperAdapter) IsSet(key string) bool {
	return va.viper.IsSet(key)
}

// Get returns the raw value of the key.
func (va *ViperAdapter) Get(key string) interface{} {
	return va.viper.Get(key)
}

// GetBool returns the value of the key as a bool.
func (va *ViperAdapter) GetBool(key string) (bool, error) {
	return getAs(va, key, cast.ToBoolE)
}

// GetInt returns the value of the key as an int.
func (va *ViperAdapter) GetInt(key string) (int, error) {
	return getAs(va, key, cast.ToIntE)
}

// GetFloat64 returns the value of the key as a float64.
func (va *ViperAdapter) GetFloat64(key string) (float64, error) {
	return getAs(va, key, cast.ToFloat64E)
}

// GetString returns the value of the key as a string.
func (va *ViperAdapter) GetString(key string) (string, error) {
	return getAs(va, key, cast.ToStringE)
}

// GetStringSlice returns the value of the key as a slice of strings.
func (va *ViperAdapter) GetStringSlice(key string) ([]string, error) {
	return getAs(va, key, cast.ToStringSliceE)
}

// GetStringMapString returns the value of the key as a map of strings.
func (va *ViperAdapter) GetStringMapString(key string) (map[string]string, error) {
	res, err := getAs(va, key, cast.ToStringMapStringE)
	if err == nil && res == nil {
		res = map[string]string{}
	}
	return res, err
}

// GetDuration returns the value of the key as a duration.
// Both duration strings ("1m30s") and integers (nanoseconds) are accepted.
func (va *ViperAdapter) GetDuration(key string) (time.Duration, error) {
	return getAs(va, key, cast.ToDurationE)
}

// GetStringFromSet returns the value of the key as a string that must be one of the set.
func (va *ViperAdapter) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	str, err := va.GetString(key)
	if err != nil {
		return "", err
	}
	for _, s := range set {
		if str == s || (ignoreCase && strings.EqualFold(str, s)) {
			return str, nil
		}
	}
	return "", WrapKeyErr(key, fmt.Errorf("unknown value %q, should be one of %v", str, set))
}

// GetByteSize returns the value of the key as a size in bytes.
// Both human-readable strings ("10M", "64Ki") and non-negative integers are accepted.
func (va *ViperAdapter) GetByteSize(key string) (ByteSize, error) {
	return getAs(va, key, castToByteSize)
}

// UnmarshalKey decodes the value of the key (e.g., a nested section) into rawVal using mapstructure.
// Strings are decoded into types implementing encoding.TextUnmarshaler (e.g., ByteSize and TimeDuration).
func (va *ViperAdapter) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	viperOpts := make([]viper.DecoderConfigOption, 0, len(opts)+1)
	viperOpts = append(viperOpts, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	for _, opt := range opts {
		viperOpts = append(viperOpts, viper.DecoderConfigOption(opt))
	}
	if err := va.viper.UnmarshalKey(key, rawVal, viperOpts...); err != nil {
		return WrapKeyErr(key, err)
	}
	return nil
}

// WrapKeyErr adds the key to the error message.
func (va *ViperAdapter) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(key, err)
}

func getAs[V any](va *ViperAdapter, key string, castFn func(interface{}) (V, error)) (V, error) {
	val := va.viper.Get(key)
	if val == nil {
		var zero V
		return zero, nil
	}
	res, err := castFn(val)
	if err != nil {
		var zero V
		return zero, WrapKeyErr(key, err)
	}
	return res, nil
}

func castToByteSize(val interface{}) (ByteSize, error) {
	switch v := val.(type) {
	case ByteSize:
		return v, nil
	case string:
		return ParseByteSize(v)
	case float32, float64:
		f := cast.ToFloat64(v)
		if f < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %v", f)
		}
		return ByteSize(f), nil
	}
	num, err := cast.ToInt64E(val)
	if err != nil {
		return 0, fmt.Errorf("unsupported type for byte size: %T", val)
	}
	if num < 0 {
		return 0, fmt.Errorf("negative value is not allowed: %d", num)
	}
	return ByteSize(num), nil
}
