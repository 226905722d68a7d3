/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package querystring converts URL query strings to loosely typed maps and back.
package querystring

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Parse parses a query string into a map.
//
// A leading "?" is ignored. A key that occurs once maps to a string, a repeated key maps to []string
// with values in order of appearance. A key without "=" maps to an empty string.
// Keys and values are percent-decoded ("+" means space), a part with an invalid escape sequence is kept as is.
func Parse(s string) map[string]any {
	res := make(map[string]any)
	s = strings.TrimPrefix(s, "?")
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, value = unescape(key), unescape(value)
		switch prev := res[key].(type) {
		case nil:
			res[key] = value
		case string:
			res[key] = []string{prev, value}
		case []string:
			res[key] = append(prev, value)
		}
	}
	return res
}

func unescape(s string) string {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return unescaped
}

// Stringify builds a query string (without a leading "?") from the map.
//
// Keys are sorted. Values are converted to strings with cast.ToStringE, falling back to fmt.Sprint
// for types cast does not know. Slices and arrays (except byte slices) are expanded into repeated keys.
// Nil values, including nil pointers, are skipped.
func Stringify(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	write := func(key string, value any) {
		if isNil(value) {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(toString(value)))
	}
	for _, key := range keys {
		value := params[key]
		rv := reflect.ValueOf(value)
		if isList(rv) {
			for i := 0; i < rv.Len(); i++ {
				write(key, rv.Index(i).Interface())
			}
			continue
		}
		write(key, value)
	}
	return sb.String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func isList(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

func toString(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
