/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unsafe"

	"github.com/cloudflare/ahocorasick"
	"github.com/ssgreg/logf"
)

// MaskFormat is a representation of a secret in the logged text.
type MaskFormat string

// Mask formats.
const (
	MaskFormatHTTPHeader MaskFormat = "http_header" // Authorization: Bearer xxx
	MaskFormatJSON       MaskFormat = "json"        // "password": "xxx"
	MaskFormatURLEncoded MaskFormat = "urlencoded"  // access_token=xxx (query strings and form bodies)
)

// MaskingRuleConfig describes a secret to be masked.
type MaskingRuleConfig struct {
	Field   string       `mapstructure:"field" yaml:"field" json:"field"`
	Formats []MaskFormat `mapstructure:"formats" yaml:"formats" json:"formats"`
}

// DefaultMaskingRules mask well-known credentials.
var DefaultMaskingRules = []MaskingRuleConfig{
	{Field: "Authorization", Formats: []MaskFormat{MaskFormatHTTPHeader}},
	{Field: "password", Formats: []MaskFormat{MaskFormatJSON, MaskFormatURLEncoded}},
	{Field: "client_secret", Formats: []MaskFormat{MaskFormatJSON, MaskFormatURLEncoded}},
	{Field: "access_token", Formats: []MaskFormat{MaskFormatJSON, MaskFormatURLEncoded}},
	{Field: "refresh_token", Formats: []MaskFormat{MaskFormatJSON, MaskFormatURLEncoded}},
	{Field: "id_token", Formats: []MaskFormat{MaskFormatJSON, MaskFormatURLEncoded}},
	{Field: "api_key", Formats: []MaskFormat{MaskFormatJSON, MaskFormatURLEncoded}},
}

// StringMasker hides secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

type maskReplacement struct {
	re   *regexp.Regexp
	repl string
}

type fieldMasker struct {
	replacements []maskReplacement
}

// Masker replaces values of the configured secrets with "***".
// Field names are looked up in a single pass with the Aho-Corasick automaton,
// regular expressions run only for the fields found in the string.
type Masker struct {
	fields  []fieldMasker
	matcher *ahocorasick.Matcher
}

var _ StringMasker = (*Masker)(nil)

// NewMasker creates a new Masker. Field names are matched case-insensitively.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{fields: make([]fieldMasker, 0, len(rules))}
	lowerFields := make([]string, 0, len(rules))
	for _, rule := range rules {
		name := regexp.QuoteMeta(rule.Field)
		var fm fieldMasker
		for _, format := range rule.Formats {
			var r maskReplacement
			switch format {
			case MaskFormatHTTPHeader:
				r = maskReplacement{regexp.MustCompile(`(?i)(` + name + `):[ \t]*[^\r\n]+`), "$1: ***"}
			case MaskFormatJSON:
				r = maskReplacement{regexp.MustCompile(`(?i)("` + name + `")\s*:\s*"(?:[^"\\]|\\.)*"`), `$1: "***"`}
			case MaskFormatURLEncoded:
				r = maskReplacement{regexp.MustCompile(`(?i)\b(` + name + `)=[^&\s"]*`), "$1=***"}
			default:
				continue
			}
			fm.replacements = append(fm.replacements, r)
		}
		m.fields = append(m.fields, fm)
		lowerFields = append(lowerFields, strings.ToLower(rule.Field))
	}
	m.matcher = ahocorasick.NewStringMatcher(lowerFields)
	return m
}

// Mask returns s with secret values replaced.
func (m *Masker) Mask(s string) string {
	if len(m.fields) == 0 || s == "" {
		return s
	}
	found := m.matcher.MatchThreadSafe([]byte(strings.ToLower(s)))
	if len(found) == 0 {
		return s
	}
	sort.Ints(found) // keep the order of rules
	for _, idx := range found {
		for _, r := range m.fields[idx].replacements {
			s = r.re.ReplaceAllString(s, r.repl)
		}
	}
	return s
}

// MaskingLogger masks secrets in messages and in string, strings, bytes and error fields.
// Fields of other types (e.g., logged with Any) are not masked.
type MaskingLogger struct {
	delegate FieldLogger
	masker   StringMasker
}

var _ FieldLogger = MaskingLogger{}

// NewMaskingLogger wraps the logger.
func NewMaskingLogger(delegate FieldLogger, masker StringMasker) FieldLogger {
	return MaskingLogger{delegate: delegate, masker: masker}
}

func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.delegate.With(l.maskFields(fs)...), l.masker}
}

func (l MaskingLogger) Debug(msg string, fs ...Field) {
	l.delegate.Debug(l.masker.Mask(msg), l.maskFields(fs)...)
}

func (l MaskingLogger) Info(msg string, fs ...Field) {
	l.delegate.Info(l.masker.Mask(msg), l.maskFields(fs)...)
}

func (l MaskingLogger) Warn(msg string, fs ...Field) {
	l.delegate.Warn(l.masker.Mask(msg), l.maskFields(fs)...)
}

func (l MaskingLogger) Error(msg string, fs ...Field) {
	l.delegate.Error(l.masker.Mask(msg), l.maskFields(fs)...)
}

func (l MaskingLogger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }
func (l MaskingLogger) Infof(format string, args ...interface{})  { l.Info(fmt.Sprintf(format, args...)) }
func (l MaskingLogger) Warnf(format string, args ...interface{})  { l.Warn(fmt.Sprintf(format, args...)) }
func (l MaskingLogger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }

func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.delegate.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.delegate.WithLevel(level), l.masker}
}

var stringSliceType = reflect.TypeOf([]string(nil))

// maskFields returns fields as is if nothing was masked.
func (l MaskingLogger) maskFields(fields []Field) []Field {
	var masked []Field
	replace := func(i int, f Field) {
		if masked == nil {
			masked = append([]Field(nil), fields...)
		}
		masked[i] = f
	}
	for i := range fields {
		field := fields[i]
		switch field.Type {
		case logf.FieldTypeBytesToString:
			s := unsafe.String(unsafe.SliceData(field.Bytes), len(field.Bytes))
			if m := l.masker.Mask(s); m != s {
				replace(i, String(field.Key, m))
			}
		case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
			if s := string(field.Bytes); field.Bytes != nil {
				if m := l.masker.Mask(s); m != s {
					replace(i, logf.ConstBytes(field.Key, []byte(m)))
				}
			}
		case logf.FieldTypeError:
			if err, ok := field.Any.(error); ok && err != nil {
				if m := l.masker.Mask(err.Error()); m != err.Error() {
					replace(i, NamedError(field.Key, newMaskedError(err, l.masker, m)))
				}
			}
		case logf.FieldTypeArray:
			// logf keeps []string in a named slice type.
			if v := reflect.ValueOf(field.Any); field.Any != nil && v.CanConvert(stringSliceType) {
				ss := v.Convert(stringSliceType).Interface().([]string)
				changed := false
				ms := make([]string, len(ss))
				for j, s := range ss {
					ms[j] = l.masker.Mask(s)
					changed = changed || ms[j] != s
				}
				if changed {
					replace(i, Strings(field.Key, ms))
				}
			}
		}
	}
	if masked == nil {
		return fields
	}
	return masked
}

// maskedError keeps the verbose ("%+v") representation for errors implementing fmt.Formatter.
type maskedError struct {
	msg        string
	verboseMsg string
}

func newMaskedError(err error, masker StringMasker, maskedMsg string) error {
	if _, ok := err.(fmt.Formatter); ok {
		return maskedError{msg: maskedMsg, verboseMsg: masker.Mask(fmt.Sprintf("%+v", err))}
	}
	return errors.New(maskedMsg)
}

func (e maskedError) Error() string { return e.msg }

func (e maskedError) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.verboseMsg)
}
