/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package structclone

import (
	"reflect"
	"regexp"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is a shape of a value as seen by the cloner.
type Kind int

// Supported kinds. KindForeign is the fallback for everything the cloner does not reproduce.
const (
	KindScalar         Kind = iota // booleans, numbers, strings and nil, returned as is
	KindTime                       // time.Time and *time.Time
	KindRegexp                     // *regexp.Regexp
	KindSequence                   // slices (except byte slices) and arrays
	KindMapping                    // maps with non-string keys
	KindOrderedMapping             // *orderedmap.OrderedMap[any, any] and *orderedmap.OrderedMap[string, any]
	KindSet                        // map[K]struct{}
	KindBytes                      // []byte
	KindRecord                     // map[string]V
	KindStruct                     // structs with exported fields only
	KindPointer                    // pointers to cloneable values
	KindCloner                     // types with a "Clone() T" method returning their own type
	KindForeign                    // channels, functions, unsafe pointers, structs with unexported fields
)

var kindNames = [...]string{
	KindScalar:         "scalar",
	KindTime:           "time",
	KindRegexp:         "regexp",
	KindSequence:       "sequence",
	KindMapping:        "mapping",
	KindOrderedMapping: "ordered mapping",
	KindSet:            "set",
	KindBytes:          "bytes",
	KindRecord:         "record",
	KindStruct:         "struct",
	KindPointer:        "pointer",
	KindCloner:         "cloner",
	KindForeign:        "foreign",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var (
	timeType             = reflect.TypeOf(time.Time{})
	timePtrType          = reflect.TypeOf((*time.Time)(nil))
	regexpType           = reflect.TypeOf((*regexp.Regexp)(nil))
	orderedMapAnyType    = reflect.TypeOf((*orderedmap.OrderedMap[any, any])(nil))
	orderedMapStringType = reflect.TypeOf((*orderedmap.OrderedMap[string, any])(nil))
)

// KindOf returns the kind the cloner uses for v.
func KindOf(v any) Kind {
	if v == nil {
		return KindScalar
	}
	return kindOfType(reflect.TypeOf(v))
}

// IsRecord reports whether v is a record, i.e. a map with string keys that DeepMerge merges recursively.
func IsRecord(v any) bool {
	return KindOf(v) == KindRecord
}

func kindOfType(t reflect.Type) Kind {
	switch t {
	case timeType, timePtrType:
		return KindTime
	case regexpType:
		return KindRegexp
	case orderedMapAnyType, orderedMapStringType:
		return KindOrderedMapping
	}
	if hasCloneMethod(t) {
		return KindCloner
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Uintptr,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return KindScalar
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes
		}
		return KindSequence
	case reflect.Array:
		return KindSequence
	case reflect.Map:
		if isEmptyStruct(t.Elem()) {
			return KindSet
		}
		if t.Key().Kind() == reflect.String {
			return KindRecord
		}
		return KindMapping
	case reflect.Struct:
		if hasOnlyExportedFields(t) {
			return KindStruct
		}
		return KindForeign
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct && !hasOnlyExportedFields(t.Elem()) {
			return KindForeign
		}
		return KindPointer
	case reflect.Interface:
		return KindScalar // only a nil interface value gets here
	default: // Chan, Func, UnsafePointer
		return KindForeign
	}
}

func hasCloneMethod(t reflect.Type) bool {
	m, ok := t.MethodByName("Clone")
	if !ok {
		return false
	}
	// For method values of the type, the receiver is the first input.
	return m.Type.NumIn() == 1 && m.Type.NumOut() == 1 && m.Type.Out(0) == t
}

func hasOnlyExportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return false
		}
	}
	return true
}

func isEmptyStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}
