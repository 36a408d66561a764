package document

// FieldType is the declared storage type of a schema field. Only TypeJSON is
// interpreted by the default serializer; any other tag passes values through.
type FieldType string

const (
	TypeJSON FieldType = "json"
)

// FieldKind is the role a field plays during normalization.
type FieldKind int

const (
	KindPlain FieldKind = iota
	KindForeignKey
	KindJSON
	KindEmbed
)

func (k FieldKind) String() string {
	switch k {
	case KindForeignKey:
		return "foreignKey"
	case KindJSON:
		return "json"
	case KindEmbed:
		return "embed"
	}
	return "plain"
}

// FieldSpec describes the expected shape of a single field.
type FieldSpec struct {
	Type       FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	ForeignKey bool      `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	Embed      bool      `json:"embed,omitempty" yaml:"embed,omitempty"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
}

// Embedded reports whether the field holds a sub-document validated by a
// named model.
func (f FieldSpec) Embedded() bool {
	return f.Embed && f.Model != ""
}

// Schema maps field names to their specs.
type Schema map[string]FieldSpec
