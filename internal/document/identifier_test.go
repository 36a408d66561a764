package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	require.Equal(t, mustOID(t, hexID), ParseID(hexID))
	require.Equal(t, mustOID(t, hexID), ParseID("507F1F77BCF86CD799439011"))
	require.Equal(t, "507f1f77bcf86cd79943901", ParseID("507f1f77bcf86cd79943901"))
	require.Equal(t, "zzzf1f77bcf86cd799439011", ParseID("zzzf1f77bcf86cd799439011"))
}

func TestIsObjectIDHex(t *testing.T) {
	require.True(t, IsObjectIDHex(hexID))
	require.False(t, IsObjectIDHex("short"))
	require.False(t, IsObjectIDHex(12))
	require.False(t, IsObjectIDHex(mustOID(t, hexID)))
}

func TestNormalizeID_NoIDIsNoop(t *testing.T) {
	in := map[string]any{"name": "x"}
	require.Equal(t, in, NormalizeID(in))
}

func TestNormalizeID_OverwritesPK(t *testing.T) {
	out := NormalizeID(map[string]any{"id": 5, "_id": "old"})
	require.Equal(t, map[string]any{"_id": 5}, out)
}

func TestNormalizeID_NilIsMoved(t *testing.T) {
	out := NormalizeID(map[string]any{"id": nil})
	require.Equal(t, map[string]any{"_id": nil}, out)
}

func TestNormalizeID_NilKeepsExistingPK(t *testing.T) {
	out := NormalizeID(map[string]any{"id": nil, "_id": "z"})
	require.Equal(t, map[string]any{"_id": "z"}, out)

	oid := mustOID(t, hexID)
	out = NormalizeID(map[string]any{"id": nil, "_id": oid, "a": 1})
	require.Equal(t, map[string]any{"_id": oid, "a": 1}, out)
}

func TestNormalizeID_DeepCopy(t *testing.T) {
	composite := map[string]any{"tenant": "t1", "parts": []any{"a"}}
	in := map[string]any{"id": composite}
	out := NormalizeID(in)

	pk := out["_id"].(map[string]any)
	pk["tenant"] = "changed"
	pk["parts"].([]any)[0] = "changed"

	require.Equal(t, "t1", composite["tenant"])
	require.Equal(t, "a", composite["parts"].([]any)[0])
	require.Contains(t, in, "id")
}
