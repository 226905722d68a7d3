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

// Cloner is implemented by types that provide their own deep copy logic.
// DeepClone calls Clone for any type having the "Clone() T" method where T is the type itself
// (e.g., http.Header), so implementing this interface explicitly is not required.
type Cloner[T any] interface {
	Clone() T
}

// DeepClone returns a deep copy of v. Modifying the copy does not affect v and vice versa,
// except for values of KindForeign, which are shared.
// Nil maps, slices and pointers stay nil.
func DeepClone[T any](v T) T {
	src := reflect.ValueOf(&v).Elem()
	dst := reflect.New(src.Type()).Elem()
	if cloned := newCloner().cloneElem(src); cloned.IsValid() {
		dst.Set(cloned)
	}
	return *dst.Addr().Interface().(*T)
}

// Clone is DeepClone for values of unknown static type.
func Clone(v any) any {
	return DeepClone(v)
}

// visitKey identifies a reference node of the source graph.
// Slices with the same backing array but different lengths are different nodes.
type visitKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type cloner struct {
	visited map[visitKey]reflect.Value
}

func newCloner() *cloner {
	return &cloner{visited: make(map[visitKey]reflect.Value)}
}

// cloneElem clones a value that may be held in an interface (e.g., an element of []any).
func (c *cloner) cloneElem(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		return c.clone(v.Elem())
	}
	return c.clone(v)
}

func (c *cloner) seen(key visitKey) (reflect.Value, bool) {
	clone, ok := c.visited[key]
	return clone, ok
}

func (c *cloner) clone(src reflect.Value) reflect.Value {
	switch kindOfType(src.Type()) {
	case KindTime:
		return c.cloneTime(src)
	case KindRegexp:
		return c.cloneRegexp(src)
	case KindOrderedMapping:
		return c.cloneOrderedMap(src)
	case KindCloner:
		return c.callClone(src)
	case KindBytes:
		return c.cloneBytes(src)
	case KindSequence:
		if src.Kind() == reflect.Array {
			return c.cloneArray(src)
		}
		return c.cloneSlice(src)
	case KindMapping, KindRecord, KindSet:
		return c.cloneMap(src)
	case KindStruct:
		return c.cloneStruct(src)
	case KindPointer:
		return c.clonePointer(src)
	default: // KindScalar, KindForeign
		return src
	}
}

func (c *cloner) cloneTime(src reflect.Value) reflect.Value {
	if src.Type() == timeType || src.IsNil() {
		return src // time.Time is immutable
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	t := *src.Interface().(*time.Time)
	clone := reflect.ValueOf(&t)
	c.visited[key] = clone
	return clone
}

func (c *cloner) cloneRegexp(src reflect.Value) reflect.Value {
	if src.IsNil() {
		return src
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	// Regexp is safe to copy, the copy keeps the pattern and the leftmost-longest mode.
	re := *src.Interface().(*regexp.Regexp)
	clone := reflect.ValueOf(&re)
	c.visited[key] = clone
	return clone
}

func (c *cloner) cloneOrderedMap(src reflect.Value) reflect.Value {
	if src.IsNil() {
		return src
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	switch om := src.Interface().(type) {
	case *orderedmap.OrderedMap[any, any]:
		dst := orderedmap.New[any, any]()
		c.visited[key] = reflect.ValueOf(dst)
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			dst.Set(c.cloneAny(pair.Key), c.cloneAny(pair.Value))
		}
		return reflect.ValueOf(dst)
	case *orderedmap.OrderedMap[string, any]:
		dst := orderedmap.New[string, any]()
		c.visited[key] = reflect.ValueOf(dst)
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			dst.Set(pair.Key, c.cloneAny(pair.Value))
		}
		return reflect.ValueOf(dst)
	}
	return src
}

func (c *cloner) cloneAny(v any) any {
	if v == nil {
		return nil
	}
	return c.clone(reflect.ValueOf(v)).Interface()
}

func (c *cloner) callClone(src reflect.Value) reflect.Value {
	if src.Kind() == reflect.Ptr || src.Kind() == reflect.Map || src.Kind() == reflect.Slice {
		if src.IsNil() {
			return src
		}
		key := visitKey{typ: src.Type(), ptr: src.Pointer()}
		if src.Kind() == reflect.Slice {
			key.len = src.Len()
		}
		if clone, ok := c.seen(key); ok {
			return clone
		}
		clone := src.MethodByName("Clone").Call(nil)[0]
		c.visited[key] = clone
		return clone
	}
	return src.MethodByName("Clone").Call(nil)[0]
}

func (c *cloner) cloneBytes(src reflect.Value) reflect.Value {
	if src.IsNil() {
		return src
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer(), len: src.Len()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	clone := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(clone, src)
	c.visited[key] = clone
	return clone
}

func (c *cloner) cloneSlice(src reflect.Value) reflect.Value {
	if src.IsNil() {
		return src
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer(), len: src.Len()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	clone := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	c.visited[key] = clone
	for i := 0; i < src.Len(); i++ {
		setCloned(clone.Index(i), c.cloneElem(src.Index(i)))
	}
	return clone
}

func (c *cloner) cloneArray(src reflect.Value) reflect.Value {
	clone := reflect.New(src.Type()).Elem()
	for i := 0; i < src.Len(); i++ {
		setCloned(clone.Index(i), c.cloneElem(src.Index(i)))
	}
	return clone
}

func (c *cloner) cloneMap(src reflect.Value) reflect.Value {
	if src.IsNil() {
		return src
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	clone := reflect.MakeMapWithSize(src.Type(), src.Len())
	c.visited[key] = clone
	elemType := src.Type().Elem()
	iter := src.MapRange()
	for iter.Next() {
		k := c.cloneElem(iter.Key())
		v := c.cloneElem(iter.Value())
		if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
			v = reflect.Zero(elemType)
		}
		clone.SetMapIndex(k, v)
	}
	return clone
}

func (c *cloner) cloneStruct(src reflect.Value) reflect.Value {
	clone := reflect.New(src.Type()).Elem()
	for i := 0; i < src.NumField(); i++ {
		setCloned(clone.Field(i), c.cloneElem(src.Field(i)))
	}
	return clone
}

func (c *cloner) clonePointer(src reflect.Value) reflect.Value {
	if src.IsNil() {
		return src
	}
	key := visitKey{typ: src.Type(), ptr: src.Pointer()}
	if clone, ok := c.seen(key); ok {
		return clone
	}
	clone := reflect.New(src.Type().Elem())
	c.visited[key] = clone
	setCloned(clone.Elem(), c.cloneElem(src.Elem()))
	return clone
}

// setCloned leaves dst zeroed for nil interface values.
func setCloned(dst, cloned reflect.Value) {
	if cloned.Kind() == reflect.Interface && cloned.IsNil() {
		return
	}
	dst.Set(cloned)
}
