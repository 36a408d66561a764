package document

import (
	"testing"

	"github.com/gogotex/docnorm/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExpandKeyPaths_TwoSegments(t *testing.T) {
	out := ExpandKeyPaths(map[string]any{"comment.by": "x"})
	require.Equal(t, map[string]any{"comment": map[string]any{"by": "x"}}, out)
}

func TestExpandKeyPaths_MergesIntoExistingObject(t *testing.T) {
	in := map[string]any{
		"comment":      map[string]any{"body": "hi"},
		"comment.by":   "x",
		"comment.when": 3,
	}
	out := ExpandKeyPaths(in)
	require.Equal(t, map[string]any{"comment": map[string]any{"body": "hi", "by": "x", "when": 3}}, out)

	// input untouched
	require.Contains(t, in, "comment.by")
	require.Equal(t, map[string]any{"body": "hi"}, in["comment"])
}

func TestExpandKeyPaths_ArrayIndex(t *testing.T) {
	out := ExpandKeyPaths(map[string]any{"comment.0.by": "x"})
	require.Equal(t, map[string]any{"comment": []any{map[string]any{"by": "x"}}}, out)
}

// The index comes from the key: elements beyond 0 are addressable and gaps are
// filled with nil.
func TestExpandKeyPaths_ArrayIndexBeyondZero(t *testing.T) {
	out := ExpandKeyPaths(map[string]any{
		"comment.0.by":   "a",
		"comment.0.body": "first",
		"comment.2.by":   "c",
	})
	require.Equal(t, map[string]any{"comment": []any{
		map[string]any{"by": "a", "body": "first"},
		nil,
		map[string]any{"by": "c"},
	}}, out)
}

func TestExpandKeyPaths_ReusesExistingArray(t *testing.T) {
	out := ExpandKeyPaths(map[string]any{
		"tags":     primitive.A{map[string]any{"name": "go"}},
		"tags.0.n": 1,
		"tags.1.n": 2,
	})
	require.Equal(t, primitive.A{
		map[string]any{"name": "go", "n": 1},
		map[string]any{"n": 2},
	}, out["tags"])
}

func TestExpandKeyPaths_UnsupportedShapesUntouched(t *testing.T) {
	in := map[string]any{
		"a.b.c.d":   1,
		"a.x.b":     2,
		"a.-1.b":    3,
		".lead":     4,
		"trail.":    5,
		"plain":     6,
		"a.99999.b": 7,
	}
	before := testutil.ToFloat64(metrics.KeyPathsSkipped.WithLabelValues(skipDepth))
	out := ExpandKeyPaths(in)
	require.Equal(t, in, out)
	require.Equal(t, before+3, testutil.ToFloat64(metrics.KeyPathsSkipped.WithLabelValues(skipDepth)))
}

func TestExpandKeyPaths_ConflictKeepsDottedKey(t *testing.T) {
	in := map[string]any{
		"title":     "hello",
		"title.en":  "hello",
		"list":      "scalar",
		"list.0.a":  1,
		"items":     []any{"str"},
		"items.0.a": 1,
	}
	out := ExpandKeyPaths(in)
	require.Equal(t, in, out)
}
