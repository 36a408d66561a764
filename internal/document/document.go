// Package document shapes raw, loosely structured input into the canonical
// mapping persisted by the storage layer.
//
// Construction runs three transforms in a fixed order: dotted key paths are
// expanded into nested values, schema-declared fields are coerced, and the
// conventional "id" field is folded into "_id". None of them fail: input they
// cannot handle is kept as it was. Embedded sub-documents are validated
// separately through a SubDocumentValidator.
package document

import (
	"context"

	"github.com/gogotex/docnorm/pkg/metrics"
)

// Document is a single normalized record together with the schema used to
// shape it.
type Document struct {
	values     map[string]any
	schema     Schema
	serializer *Serializer
}

// Option configures a Document.
type Option func(*Document)

// WithSerializer replaces the default field serializer.
func WithSerializer(s *Serializer) Option {
	return func(d *Document) {
		if s != nil {
			d.serializer = s
		}
	}
}

// New normalizes values against schema. The caller's map is copied, never
// modified. Either argument may be nil.
func New(values map[string]any, schema Schema, opts ...Option) *Document {
	d := &Document{
		values:     map[string]any{},
		schema:     schema,
		serializer: DefaultSerializer(),
	}
	if d.schema == nil {
		d.schema = Schema{}
	}
	for _, opt := range opts {
		opt(d)
	}
	if values != nil {
		d.SetValues(values)
	}
	return d
}

// Normalize is shorthand for New(values, schema).Values().
func Normalize(values map[string]any, schema Schema) map[string]any {
	return New(values, schema).Values()
}

// SetValues runs the pipeline over a copy of values, stores the result and
// returns it.
func (d *Document) SetValues(values map[string]any) map[string]any {
	out := cloneMap(values)
	expandKeyPaths(out)
	d.serializer.serialize(d.schema, out)
	normalizeID(out)

	metrics.DocumentsNormalized.Inc()
	d.values = out
	return out
}

// Values returns the normalized mapping.
func (d *Document) Values() map[string]any {
	return d.values
}

// Schema returns the schema the document was built with.
func (d *Document) Schema() Schema {
	return d.schema
}

// ID returns the canonical primary key, if one is set.
func (d *Document) ID() (any, bool) {
	id, ok := d.values[PKField]
	return id, ok
}

// ValidateSubDocuments validates the document's embedded fields.
func (d *Document) ValidateSubDocuments(ctx context.Context, v *SubDocumentValidator) *ValidationReport {
	return v.Validate(ctx, d.schema, d.values)
}
