/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package querystring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{"empty", "", map[string]any{}},
		{"only question mark", "?", map[string]any{}},
		{"single pair", "a=1", map[string]any{"a": "1"}},
		{"leading question mark", "?a=1&b=2", map[string]any{"a": "1", "b": "2"}},
		{"repeated keys", "a=1&a=2&b=3&a=4", map[string]any{"a": []string{"1", "2", "4"}, "b": "3"}},
		{"key without value", "flag&a=", map[string]any{"flag": "", "a": ""}},
		{"percent-decoding", "q=go%20lang&name=J%C3%BCrgen&sp=a+b", map[string]any{"q": "go lang", "name": "Jürgen", "sp": "a b"}},
		{"encoded key", "a%5B%5D=1", map[string]any{"a[]": "1"}},
		{"value with equal sign", "expr=a=b", map[string]any{"expr": "a=b"}},
		{"invalid escape is kept", "bad=100%&ok=%41", map[string]any{"bad": "100%", "ok": "A"}},
		{"empty parts", "&&a=1&&", map[string]any{"a": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

type level int

func (l level) String() string { return [...]string{"low", "high"}[l] }

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"nil map", nil, ""},
		{"sorted keys", map[string]any{"b": "2", "a": "1"}, "a=1&b=2"},
		{"typed values", map[string]any{"i": 42, "f": 1.5, "b": true, "d": time.Second}, "b=true&d=1s&f=1.5&i=42"},
		{"slices are repeated", map[string]any{"id": []int{1, 2}, "tag": []string{"x"}}, "id=1&id=2&tag=x"},
		{"arrays are repeated", map[string]any{"id": [2]string{"a", "b"}}, "id=a&id=b"},
		{"bytes are a single value", map[string]any{"raw": []byte("abc")}, "raw=abc"},
		{"nil values are skipped", map[string]any{"a": nil, "b": "1", "c": []any{nil, "x"}}, "b=1&c=x"},
		{"escaping", map[string]any{"q": "go lang & more", "a[]": "ü"}, "a%5B%5D=%C3%BC&q=go+lang+%26+more"},
		{"stringer", map[string]any{"level": level(1)}, "level=high"},
		{"error", map[string]any{"err": errors.New("boom")}, "err=boom"},
		{"unknown type falls back to fmt", map[string]any{"p": struct{ X int }{1}}, "p=%7B1%7D"},
		{"empty slice", map[string]any{"a": []string{}}, ""},
		{"nil pointers are skipped", map[string]any{"p": (*int)(nil), "m": map[string]int(nil), "b": "1"}, "b=1"},
		{"nil pointers in slices are skipped", map[string]any{"p": []*string{nil, ptr("x")}}, "p=x"},
		{"pointers are dereferenced", map[string]any{"n": ptr(7)}, "n=7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Stringify(tt.in))
		})
	}
}

func TestParseStringify(t *testing.T) {
	in := map[string]any{"a": []string{"1", "2"}, "q": "hello world", "empty": ""}
	require.Equal(t, in, Parse(Stringify(in)))
}

func ptr[T any](v T) *T { return &v }
