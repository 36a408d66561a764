package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializer_Kinds(t *testing.T) {
	s := DefaultSerializer()
	require.Equal(t, []FieldKind{KindPlain}, s.Kinds(FieldSpec{}))
	require.Equal(t, []FieldKind{KindPlain}, s.Kinds(FieldSpec{Type: "string"}))
	require.Equal(t, []FieldKind{KindJSON}, s.Kinds(FieldSpec{Type: TypeJSON}))
	require.Equal(t, []FieldKind{KindForeignKey, KindJSON}, s.Kinds(FieldSpec{Type: TypeJSON, ForeignKey: true}))
	require.Equal(t, []FieldKind{KindEmbed}, s.Kinds(FieldSpec{Embed: true, Model: "comment"}))
	require.Equal(t, []FieldKind{KindPlain}, s.Kinds(FieldSpec{Embed: true}))
}

func TestSerializer_JSONValues(t *testing.T) {
	schema := Schema{"v": {Type: TypeJSON}}
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"object", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"array", `["x",true,null]`, []any{"x", true, nil}},
		{"number", `42`, float64(42)},
		{"bytes", []byte(`{"b":"c"}`), map[string]any{"b": "c"}},
		{"malformed", `{bad json`, `{bad json`},
		{"malformed leading zero", `01`, `01`},
		{"malformed raw tab in string", "\"a\tb\"", "\"a\tb\""},
		{"malformed trailing text", `{"a":1} x`, `{"a":1} x`},
		{"malformed bytes", []byte(`[1,]`), []byte(`[1,]`)},
		{"empty", ``, ``},
		{"already parsed", map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"number value", 7, 7},
		{"nil", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := DefaultSerializer().Serialize(schema, map[string]any{"v": tc.in})
			require.Equal(t, tc.want, out["v"])
		})
	}
}

func TestSerializer_ForeignKeyThenJSON(t *testing.T) {
	// a converted identifier is no longer text, so JSON coercion leaves it
	schema := Schema{"ref": {ForeignKey: true, Type: TypeJSON}}
	out := DefaultSerializer().Serialize(schema, map[string]any{"ref": hexID})
	require.Equal(t, mustOID(t, hexID), out["ref"])
}

func TestSerializer_AbsentFieldNotInserted(t *testing.T) {
	schema := Schema{"meta": {Type: TypeJSON}, "author": {ForeignKey: true}}
	in := map[string]any{"name": "x"}
	out := DefaultSerializer().Serialize(schema, in)
	require.Equal(t, map[string]any{"name": "x"}, out)
}

func TestFieldKind_String(t *testing.T) {
	require.Equal(t, "plain", KindPlain.String())
	require.Equal(t, "foreignKey", KindForeignKey.String())
	require.Equal(t, "json", KindJSON.String())
	require.Equal(t, "embed", KindEmbed.String())
}
