package document

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gogotex/docnorm/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxArrayIndex bounds the index accepted in an "a.<n>.b" key so a hostile key
// cannot force a huge allocation.
const MaxArrayIndex = 1024

// Reasons reported on metrics.KeyPathsSkipped.
const (
	skipDepth    = "depth"
	skipSegment  = "segment"
	skipIndex    = "index"
	skipConflict = "conflict"
)

// ExpandKeyPaths returns a copy of values with dotted keys rewritten into
// nested structures:
//
//	comment.by = "x"   => { comment: { by: "x" } }
//	comment.0.by = "x" => { comment: [ { by: "x" } ] }
//
// Keys of any other shape are kept verbatim.
func ExpandKeyPaths(values map[string]any) map[string]any {
	out := cloneMap(values)
	expandKeyPaths(out)
	return out
}

func expandKeyPaths(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.Contains(k, ".") {
			keys = append(keys, k)
		}
	}
	// sorted so "a.0.x" and "a.1.x" land deterministically
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.Split(key, ".")
		var reason string
		switch len(parts) {
		case 2:
			reason = expandObjectPath(values, key, parts)
		case 3:
			reason = expandArrayPath(values, key, parts)
		default:
			reason = skipDepth
		}
		if reason != "" {
			metrics.KeyPathsSkipped.WithLabelValues(reason).Inc()
		}
	}
}

func hasEmptySegment(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return true
		}
	}
	return false
}

func expandObjectPath(values map[string]any, key string, parts []string) string {
	if hasEmptySegment(parts) {
		return skipSegment
	}
	head, sub := parts[0], parts[1]

	var target map[string]any
	if existing, ok := values[head]; ok {
		obj, isObj := asObject(existing)
		if !isObj {
			return skipConflict
		}
		target = obj
	} else {
		target = map[string]any{}
		values[head] = target
	}

	target[sub] = values[key]
	delete(values, key)
	return ""
}

func expandArrayPath(values map[string]any, key string, parts []string) string {
	if hasEmptySegment(parts) {
		return skipSegment
	}
	head, sub := parts[0], parts[2]
	idx, ok := parseIndex(parts[1])
	if !ok {
		return skipDepth
	}
	if idx > MaxArrayIndex {
		return skipIndex
	}

	var arr []any
	_, typed := values[head].(primitive.A)
	if existing, ok := values[head]; ok {
		a, isArr := asArray(existing)
		if !isArr {
			return skipConflict
		}
		arr = a
	}
	for len(arr) <= idx {
		arr = append(arr, nil)
	}

	var elem map[string]any
	if arr[idx] == nil {
		elem = map[string]any{}
		arr[idx] = elem
	} else {
		obj, isObj := asObject(arr[idx])
		if !isObj {
			return skipConflict
		}
		elem = obj
	}

	elem[sub] = values[key]
	if typed {
		values[head] = primitive.A(arr)
	} else {
		values[head] = arr
	}
	delete(values, key)
	return ""
}

// parseIndex accepts only unsigned decimal digits.
func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// out of int range; still an index, just an unusable one
		return MaxArrayIndex + 1, true
	}
	return n, true
}
