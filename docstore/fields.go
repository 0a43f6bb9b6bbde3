package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/billbatista/acasinha-trip/apperror"
)

type deleteSentinel struct{}

var deleteMarker = &deleteSentinel{}

// DeleteField is used as a value in Update to remove the field at that path.
func DeleteField() any {
	return deleteMarker
}

func isDelete(v any) bool {
	_, ok := v.(*deleteSentinel)
	return ok
}

// toDocument turns any JSON object shaped value into a plain map.
func toDocument(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperror.Wrap(apperror.CodeValidation, "document must be a JSON object", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func normalizeValue(v any) (any, error) {
	if isDelete(v) {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding field: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding field: %w", err)
	}
	return out, nil
}

func cloneDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	out, err := toDocument(doc)
	if err != nil {
		// doc only ever holds values produced by encoding/json
		panic(err)
	}
	return out
}

// applyFields merges dotted field paths into doc in place.
func applyFields(doc map[string]any, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.Split(key, ".")
		for _, p := range parts {
			if p == "" {
				return apperror.Validation(fmt.Sprintf("invalid field path %q", key))
			}
		}
		value, err := normalizeValue(fields[key])
		if err != nil {
			return err
		}

		cur := doc
		missing := false
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				if isDelete(value) {
					missing = true
					break
				}
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		if missing {
			continue
		}

		last := parts[len(parts)-1]
		if isDelete(value) {
			delete(cur, last)
			continue
		}
		cur[last] = value
	}
	return nil
}
