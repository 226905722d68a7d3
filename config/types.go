/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes for configuration structures.
// It's decoded from non-negative integers and human-readable strings ("512K", "10MB", "1Gi")
// and encoded as a human-readable string.
type ByteSize uint64

// ParseByteSize parses a human-readable size. Kubernetes-style power-of-two suffixes ("Ki", "Mi", ...) are accepted.
func ParseByteSize(s string) (ByteSize, error) {
	v := strings.TrimSpace(s)
	if num, err := strconv.ParseInt(v, 10, 64); err == nil {
		if num < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %d", num)
		}
		return ByteSize(num), nil
	}
	if len(v) > 2 && strings.HasSuffix(v, "i") && strings.ContainsAny(v[len(v)-2:len(v)-1], "KMGTPE") {
		v = v[:len(v)-1]
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(num), nil
}

func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	return b.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid byte size at line %d: scalar expected", value.Line)
	}
	return b.UnmarshalText([]byte(value.Value))
}

func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// TimeDuration is a duration for configuration structures.
// It's decoded from duration strings ("1m30s") and non-negative integers (nanoseconds)
// and encoded as a duration string.
type TimeDuration time.Duration

// ParseTimeDuration parses a duration string or an integer number of nanoseconds.
func ParseTimeDuration(s string) (TimeDuration, error) {
	v := strings.TrimSpace(s)
	if num, err := strconv.ParseInt(v, 10, 64); err == nil {
		if num < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %d", num)
		}
		return TimeDuration(num), nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid time duration %q: %w", s, err)
	}
	return TimeDuration(dur), nil
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

func (d *TimeDuration) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d TimeDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	return d.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid time duration at line %d: scalar expected", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
