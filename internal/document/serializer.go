package document

import (
	stdjson "encoding/json"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gogotex/docnorm/pkg/metrics"
)

// Coercer rewrites a single field value. It reports false when the value was
// left as it was.
type Coercer func(v any) (any, bool)

// Serializer coerces field values according to the kinds their schema
// entries resolve to.
type Serializer struct {
	mu        sync.RWMutex
	typeKinds map[FieldType]FieldKind
	coercers  map[FieldKind]Coercer
}

// NewSerializer returns a serializer with no registered kinds; every value
// passes through.
func NewSerializer() *Serializer {
	return &Serializer{
		typeKinds: map[FieldType]FieldKind{},
		coercers:  map[FieldKind]Coercer{},
	}
}

var (
	defaultOnce       sync.Once
	defaultSerializer *Serializer
)

// DefaultSerializer returns the shared serializer handling foreign keys and
// JSON-typed fields.
func DefaultSerializer() *Serializer {
	defaultOnce.Do(func() {
		s := NewSerializer()
		s.RegisterKind(KindForeignKey, coerceForeignKey)
		s.Register(TypeJSON, KindJSON, coerceJSON)
		defaultSerializer = s
	})
	return defaultSerializer
}

// Register maps a declared field type to a kind and installs the kind's
// coercer. A nil coercer makes the kind a pass-through.
func (s *Serializer) Register(t FieldType, kind FieldKind, c Coercer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typeKinds[t] = kind
	if c != nil {
		s.coercers[kind] = c
	}
}

// RegisterKind installs a coercer for a kind that is not derived from a
// field type (foreign keys).
func (s *Serializer) RegisterKind(kind FieldKind, c Coercer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coercers[kind] = c
}

// Kinds resolves a field spec into the ordered list of kinds applied to it.
func (s *Serializer) Kinds(spec FieldSpec) []FieldKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kinds := make([]FieldKind, 0, 3)
	if spec.ForeignKey {
		kinds = append(kinds, KindForeignKey)
	}
	if k, ok := s.typeKinds[spec.Type]; ok {
		kinds = append(kinds, k)
	}
	if spec.Embedded() {
		kinds = append(kinds, KindEmbed)
	}
	if len(kinds) == 0 {
		kinds = append(kinds, KindPlain)
	}
	return kinds
}

// Serialize returns a copy of values with every schema-declared field
// coerced. Fields absent from the schema, or from values, are untouched.
func (s *Serializer) Serialize(schema Schema, values map[string]any) map[string]any {
	out := cloneMap(values)
	s.serialize(schema, out)
	return out
}

func (s *Serializer) serialize(schema Schema, values map[string]any) {
	for key, v := range values {
		spec, ok := schema[key]
		if !ok {
			continue
		}
		for _, kind := range s.Kinds(spec) {
			s.mu.RLock()
			c := s.coercers[kind]
			s.mu.RUnlock()
			if c == nil {
				continue
			}
			if nv, changed := c(v); changed {
				v = nv
			}
		}
		values[key] = v
	}
}

func coerceForeignKey(v any) (any, bool) {
	if !IsObjectIDHex(v) {
		return v, false
	}
	oid := ParseID(v.(string))
	if _, isString := oid.(string); isString {
		return v, false
	}
	return oid, true
}

func coerceJSON(v any) (any, bool) {
	var text []byte
	switch t := v.(type) {
	case string:
		text = []byte(t)
	case []byte:
		text = t
	default:
		return v, false
	}
	// goccy accepts some malformed input ("01", raw control characters in
	// strings), so the text must pass the strict RFC 8259 check first.
	if !stdjson.Valid(text) {
		metrics.JSONCoercionFailures.Inc()
		return v, false
	}
	var parsed any
	if err := json.Unmarshal(text, &parsed); err != nil {
		metrics.JSONCoercionFailures.Inc()
		return v, false
	}
	return parsed, true
}
