/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataType is a format of configuration data.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataProvider provides typed access to configuration values collected from different sources.
// Getters return zero values without errors for keys that are not set.
type DataProvider interface {
	UseEnvVars(prefix string)
	Set(key string, value interface{})
	SetDefault(key string, value interface{})
	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error
	IsSet(key string) bool
	Get(key string) interface{}
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetFloat64(key string) (float64, error)
	GetString(key string) (string, error)
	GetStringSlice(key string) ([]string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetStringMapString(key string) (map[string]string, error)
	GetDuration(key string) (time.Duration, error)
	GetByteSize(key string) (ByteSize, error)
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error
	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes mapstructure decoding in UnmarshalKey.
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WrapKeyErr adds the key to the error message.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
