package models

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var (
	// ErrNotObject is returned when an embedded value is not a mapping.
	ErrNotObject      = errors.New("value is not an object")
	ErrDuplicateModel = errors.New("model already registered")
	ErrInvalidRule    = errors.New("invalid validation rule")
)

// ValidationError lists the fields of an embedded document that broke their
// model's rules.
type ValidationError struct {
	Model  string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return fmt.Sprintf("%s is invalid: %s", e.Model, strings.Join(parts, "; "))
}

// Declared is a registry entry with no validation rules. Lookups find it but
// it cannot validate.
type Declared struct {
	Name string
}

// Registry maps model names to entries. It satisfies document.ModelRegistry.
type Registry struct {
	mu       sync.RWMutex
	models   map[string]any
	validate *validator.Validate
}

// NewRegistry returns an empty registry whose validation errors are keyed by
// json field names.
func NewRegistry() *Registry {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so errors line up with document keys
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return &Registry{
		models:   make(map[string]any),
		validate: v,
	}
}

// Model returns the entry registered under name.
func (r *Registry) Model(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Names lists registered models in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for n := range r.models {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) add(name string, entry any) error {
	if name == "" {
		return errors.New("model name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, name)
	}
	r.models[name] = entry
	return nil
}

// Declare registers a model without validation.
func (r *Registry) Declare(name string) error {
	return r.add(name, &Declared{Name: name})
}

// RegisterRules registers a model validated by a map of validator tags, e.g.
// {"by": "required", "body": "required,max=500"}.
func (r *Registry) RegisterRules(name string, rules map[string]any) error {
	if len(rules) == 0 {
		return r.Declare(name)
	}
	if err := checkRules(r.validate, "", rules); err != nil {
		return err
	}
	return r.add(name, &ruleModel{name: name, rules: rules, validate: r.validate})
}

// RegisterStruct registers a model validated by decoding values into a fresh
// instance of prototype's struct type and checking its `validate` tags.
func (r *Registry) RegisterStruct(name string, prototype any) error {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("model %s: prototype must be a struct, got %T", name, prototype)
	}
	return r.add(name, &structModel{name: name, typ: t, validate: r.validate})
}

// RegisterFunc registers a model validated by fn.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, value any) error) error {
	if fn == nil {
		return r.Declare(name)
	}
	return r.add(name, funcModel(fn))
}

type funcModel func(ctx context.Context, value any) error

func (f funcModel) Validate(ctx context.Context, value any) error { return f(ctx, value) }

type ruleModel struct {
	name     string
	rules    map[string]any
	validate *validator.Validate
}

func (m *ruleModel) Validate(ctx context.Context, value any) error {
	obj, ok := asObject(value)
	if !ok {
		return fmt.Errorf("%s: %w", m.name, ErrNotObject)
	}
	res := m.validate.ValidateMapCtx(ctx, obj, m.rules)
	if len(res) == 0 {
		return nil
	}
	fields := make(map[string]string, len(res))
	flattenMapErrors("", res, fields)
	return &ValidationError{Model: m.name, Fields: fields}
}

func flattenMapErrors(prefix string, res map[string]any, into map[string]string) {
	for field, v := range res {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		switch e := v.(type) {
		case map[string]any:
			flattenMapErrors(key, e, into)
		case validator.ValidationErrors:
			for _, fe := range e {
				into[key] = describe(fe)
			}
		case error:
			into[key] = e.Error()
		}
	}
}

// checkRules parses every tag once. validator panics on unknown tags and
// ValidateMapCtx asserts every non-map rule to string, so both are caught
// here instead of at validation time.
func checkRules(v *validator.Validate, prefix string, rules map[string]any) error {
	for field, rule := range rules {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		switch t := rule.(type) {
		case map[string]any:
			if err := checkRules(v, key, t); err != nil {
				return err
			}
		case string:
			if err := checkTag(v, t); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidRule, key, err)
			}
		default:
			return fmt.Errorf("%w: %s: want a tag string or a nested map, got %T", ErrInvalidRule, key, rule)
		}
	}
	return nil
}

func checkTag(v *validator.Validate, tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	// the value is irrelevant; only tag parsing can panic
	_ = v.Var(nil, tag)
	return nil
}

type structModel struct {
	name     string
	typ      reflect.Type
	validate *validator.Validate
}

func (m *structModel) Validate(ctx context.Context, value any) error {
	obj, ok := asObject(value)
	if !ok {
		return fmt.Errorf("%s: %w", m.name, ErrNotObject)
	}
	target := reflect.New(m.typ).Interface()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("%s: decoder: %w", m.name, err)
	}
	if err := dec.Decode(obj); err != nil {
		return &ValidationError{Model: m.name, Fields: map[string]string{"_": err.Error()}}
	}
	err = m.validate.StructCtx(ctx, target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Model: m.name, Fields: fields}
}

func describe(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

func asObject(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	// named map types such as bson.M
	if rv.Type().Elem().Kind() != reflect.Interface {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
