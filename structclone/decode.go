/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package structclone

import (
	"bytes"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DecodeRecord decodes a record (usually a result of DeepMerge) into the struct pointed to by out.
// Input is weakly typed: strings like "10s" are decoded into time.Duration,
// comma-separated strings into slices and values of types implementing encoding.TextUnmarshaler are parsed.
// Struct fields are matched by the "mapstructure" tag or by the case-insensitive field name.
func DecodeRecord(record any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(record)
}

// MergeYAML parses YAML documents and deeply merges them with DeepMerge.
// Later documents override earlier ones. Empty documents are skipped.
// Every non-empty document must be a mapping.
func MergeYAML(docs ...[]byte) (map[string]any, error) {
	records := make([]any, 0, len(docs))
	for i, doc := range docs {
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		var rec map[string]any
		if err := yaml.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return DeepMerge(nil, records...), nil
}
