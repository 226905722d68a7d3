/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package structclone

import "reflect"

// DeepMerge merges sources into a deep clone of target and returns the result.
//
// Target and sources are expected to be records (maps with string keys).
// A target that is not a record is replaced with an empty record, sources that are not records are skipped.
// Sources are applied from left to right. For every key of a source, if both the current and the new values are records,
// they are merged recursively. Otherwise, the new value (deep-cloned) replaces the current one,
// so slices and other containers are never concatenated.
//
// Neither target nor sources are modified. The result and every record built by merging are map[string]any,
// nested records that no source touches keep their original types.
// A merged record is always a new map, so other references to the record it replaces are not affected.
func DeepMerge(target any, sources ...any) map[string]any {
	var result map[string]any
	if IsRecord(target) {
		result = toAnyRecord(DeepClone(target))
	}
	if result == nil {
		result = make(map[string]any)
	}
	m := &merger{merging: make(map[mergePair]map[string]any)}
	for _, src := range sources {
		if !IsRecord(src) {
			continue
		}
		m.mergeInto(reflect.ValueOf(result).Pointer(), result, reflect.ValueOf(src))
	}
	return result
}

type mergePair struct {
	dst, src uintptr
}

type merger struct {
	// merging maps pairs of (accumulated record, source record) that are being merged now to the record
	// receiving the merge. A pair met again on a cyclic path resolves to that record instead of recursing.
	merging map[mergePair]map[string]any
}

// mergeInto merges src into dst. origin identifies the accumulated record dst was copied from.
func (m *merger) mergeInto(origin uintptr, dst map[string]any, src reflect.Value) {
	pair := mergePair{dst: origin, src: src.Pointer()}
	m.merging[pair] = dst
	defer delete(m.merging, pair)

	iter := src.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		srcVal := iter.Value()
		if srcVal.Kind() == reflect.Interface {
			srcVal = srcVal.Elem()
		}
		var srcAny any
		if srcVal.IsValid() {
			srcAny = srcVal.Interface()
		}

		if dstVal, ok := dst[key]; ok && IsRecord(dstVal) && IsRecord(srcAny) {
			dstOrigin := reflect.ValueOf(dstVal).Pointer()
			if inProgress, ok := m.merging[mergePair{dst: dstOrigin, src: srcVal.Pointer()}]; ok {
				dst[key] = inProgress
				continue
			}
			merged := copyRecord(dstVal)
			dst[key] = merged
			m.mergeInto(dstOrigin, merged, srcVal)
			continue
		}
		dst[key] = Clone(srcAny)
	}
}

// toAnyRecord converts a record of any map[string]V type to map[string]any.
// Values are not copied, so the record must already be owned by the caller.
func toAnyRecord(rec any) map[string]any {
	if r, ok := rec.(map[string]any); ok {
		return r
	}
	if reflect.ValueOf(rec).IsNil() {
		return nil
	}
	return copyRecord(rec)
}

// copyRecord returns a new map[string]any with the entries of rec. Values are shared.
func copyRecord(rec any) map[string]any {
	rv := reflect.ValueOf(rec)
	res := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		res[iter.Key().String()] = iter.Value().Interface()
	}
	return res
}
