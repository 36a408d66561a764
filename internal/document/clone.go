package document

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// cloneMap deep-copies a mapping. A nil map yields an empty one.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies the container shapes produced by JSON and BSON
// decoding. Scalars, ObjectIDs included, are values and are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case primitive.M:
		return primitive.M(cloneMap(t))
	case []any:
		return cloneSlice(t)
	case primitive.A:
		return primitive.A(cloneSlice(t))
	case primitive.D:
		out := make(primitive.D, len(t))
		for i, e := range t {
			out[i] = primitive.E{Key: e.Key, Value: cloneValue(e.Value)}
		}
		return out
	case []byte:
		if t == nil {
			return t
		}
		out := make([]byte, len(t))
		copy(out, t)
		return out
	}
	return v
}

func cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}

// asObject returns v as a plain mapping when it has an object shape.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case primitive.M:
		return t, true
	}
	return nil, false
}

// asArray returns v as a plain slice when it has an array shape.
func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case primitive.A:
		return t, true
	}
	return nil, false
}

// Clone deep-copies a normalized mapping.
func Clone(values map[string]any) map[string]any {
	return cloneMap(values)
}
