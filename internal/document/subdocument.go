package document

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gogotex/docnorm/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ModelRegistry resolves a model name to its registry entry. Entries that
// implement ModelValidator can validate embedded values.
type ModelRegistry interface {
	Model(name string) (any, bool)
}

// ModelValidator is the validation capability of a registry entry.
type ModelValidator interface {
	Validate(ctx context.Context, value any) error
}

// ErrValidatorPanic wraps the value recovered from a validator that panicked.
var ErrValidatorPanic = errors.New("validator panicked")

// FieldError is a failed validation of one embedded field.
type FieldError struct {
	Field string
	Model string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q (model %s): %v", e.Field, e.Model, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FieldOutcome is the result of validating one embedded field. Err is nil on
// success.
type FieldOutcome struct {
	Field string
	Model string
	Err   error
}

// ValidationReport collects one outcome per validated field, sorted by field
// name.
type ValidationReport struct {
	Outcomes []FieldOutcome
}

// Failed returns the outcomes that carry an error.
func (r *ValidationReport) Failed() []FieldOutcome {
	var out []FieldOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Err joins the failures as *FieldError values, or returns nil.
func (r *ValidationReport) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, &FieldError{Field: o.Field, Model: o.Model, Err: o.Err})
	}
	return errors.Join(errs...)
}

// SubDocumentValidator dispatches embedded fields to the validators of their
// models.
type SubDocumentValidator struct {
	registry ModelRegistry
}

// NewSubDocumentValidator returns a validator resolving models through reg.
// A nil registry validates nothing.
func NewSubDocumentValidator(reg ModelRegistry) *SubDocumentValidator {
	return &SubDocumentValidator{registry: reg}
}

type pending struct {
	field     string
	model     string
	validator ModelValidator
	value     any
}

// Validate runs every qualifying embedded field through its model validator
// concurrently and returns once all of them have finished. Fields that are
// missing, nil, array-shaped, or whose model is unknown or cannot validate
// are skipped.
func (v *SubDocumentValidator) Validate(ctx context.Context, schema Schema, values map[string]any) *ValidationReport {
	jobs := v.collect(schema, values)
	report := &ValidationReport{Outcomes: make([]FieldOutcome, len(jobs))}
	if len(jobs) == 0 {
		return report
	}

	// Failures are carried in the outcomes; the group only waits, so one
	// failing field never cancels the others.
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			err := runValidator(ctx, j)
			report.Outcomes[i] = FieldOutcome{Field: j.field, Model: j.model, Err: err}
			outcome := "valid"
			if err != nil {
				outcome = "invalid"
			}
			metrics.SubDocumentValidations.WithLabelValues(j.model, outcome).Inc()
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// runValidator turns a panicking validator into a field failure; the
// goroutine is outside any caller's recover.
func runValidator(ctx context.Context, j pending) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrValidatorPanic, r)
		}
	}()
	return j.validator.Validate(ctx, j.value)
}

func (v *SubDocumentValidator) collect(schema Schema, values map[string]any) []pending {
	if v.registry == nil {
		return nil
	}
	var jobs []pending
	for field, spec := range schema {
		if !spec.Embedded() {
			continue
		}
		value, ok := values[field]
		if !ok || value == nil {
			continue
		}
		if _, isArr := asArray(value); isArr {
			continue
		}
		entry, ok := v.registry.Model(spec.Model)
		if !ok {
			continue
		}
		mv, ok := entry.(ModelValidator)
		if !ok {
			continue
		}
		jobs = append(jobs, pending{field: field, model: spec.Model, validator: mv, value: value})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].field < jobs[j].field })
	return jobs
}
