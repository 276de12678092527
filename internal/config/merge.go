package config

import (
	"github.com/iDestin/rsbuild/internal/errors"
)

// MergeFunc performs a deep structural merge of two configuration fragments.
// Implementations must not mutate either argument.
type MergeFunc func(base, override map[string]any) map[string]any

// DeepMerge combines fragments key-wise. Nested maps merge recursively,
// arrays are replaced wholesale by the override's array, and scalar leaves
// take the override's value. A nil override value never overwrites a defined
// base value.
func DeepMerge(base, override map[string]any) map[string]any {
	result := cloneMap(base)
	for key, value := range override {
		if value == nil {
			continue
		}
		if overrideMap, ok := value.(map[string]any); ok {
			if baseMap, ok := result[key].(map[string]any); ok {
				result[key] = DeepMerge(baseMap, overrideMap)
				continue
			}
			result[key] = cloneMap(overrideMap)
			continue
		}
		result[key] = cloneValue(value)
	}
	return result
}

// DeepMergeConcat is the concatenating variant of DeepMerge: array fields
// append the override's elements after the base's instead of replacing them.
func DeepMergeConcat(base, override map[string]any) map[string]any {
	result := cloneMap(base)
	for key, value := range override {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			if baseMap, ok := result[key].(map[string]any); ok {
				result[key] = DeepMergeConcat(baseMap, v)
				continue
			}
			result[key] = cloneMap(v)
		case []any:
			if baseSlice, ok := result[key].([]any); ok {
				merged := make([]any, 0, len(baseSlice)+len(v))
				merged = append(merged, baseSlice...)
				for _, item := range v {
					merged = append(merged, cloneValue(item))
				}
				result[key] = merged
				continue
			}
			result[key] = cloneValue(v)
		default:
			result[key] = cloneValue(value)
		}
	}
	return result
}

// Merge layers overrides on top of defaults using fn. A nil fn is a caller
// programming error and fails fast instead of silently picking a strategy.
func Merge(defaults, overrides map[string]any, fn MergeFunc) (map[string]any, error) {
	if fn == nil {
		return nil, errors.New(errors.CodeMissingMergeStrategy)
	}
	if overrides == nil {
		return fn(defaults, map[string]any{}), nil
	}
	return fn(defaults, overrides), nil
}

// ResolveLayers applies the fixed two-stage precedence order: framework
// defaults < server-injected overrides < tool-declared overrides. The same
// merge function is used for both stages.
func ResolveLayers(defaults, serverOverrides, toolOverrides map[string]any, fn MergeFunc) (map[string]any, error) {
	merged, err := Merge(defaults, serverOverrides, fn)
	if err != nil {
		return nil, err
	}
	return Merge(merged, toolOverrides, fn)
}

// cloneMap returns a deep copy of a fragment.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
