/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package uid generates unique identifiers and encodes strings to base64.
package uid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// ErrInvalidUTF8 is returned when a decoded base64 string is not a valid UTF-8 text.
var ErrInvalidUTF8 = errors.New("decoded data is not valid UTF-8")

// NewUUID returns a random (version 4) UUID in the canonical form, e.g. "f47ac10b-58cc-4372-a567-0e02b2c3d479".
func NewUUID() string {
	return uuid.NewString()
}

// IsUUID reports whether s is a UUID in the canonical form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NewShortID returns a globally unique, 20 characters long, sortable by creation time ID (xid).
func NewShortID() string {
	return xid.New().String()
}

// EncodeBase64 encodes s with the standard base64 alphabet (with padding).
func EncodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeBase64 decodes s encoded with the standard base64 alphabet. Padding is optional.
func DecodeBase64(s string) (string, error) {
	return decode(base64.RawStdEncoding, s)
}

// EncodeBase64URL encodes s with the URL-safe base64 alphabet without padding,
// so the result can be used in URLs and file names as is.
func EncodeBase64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// DecodeBase64URL decodes s encoded with the URL-safe base64 alphabet. Padding is optional.
func DecodeBase64URL(s string) (string, error) {
	return decode(base64.RawURLEncoding, s)
}

func decode(enc *base64.Encoding, s string) (string, error) {
	data, err := enc.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
