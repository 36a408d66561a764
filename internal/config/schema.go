package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/gogotex/docnorm/internal/document"
	"github.com/gogotex/docnorm/internal/models"
	"gopkg.in/yaml.v3"
)

var ErrNoCollections = errors.New("schema file declares no collections")

// CollectionSpec is one collection entry of a schema file.
type CollectionSpec struct {
	Fields document.Schema `yaml:"fields"`
}

// Catalog is the parsed content of a schema file: the field schema of every
// collection plus the rules of the embedded models they reference.
type Catalog struct {
	Collections map[string]CollectionSpec `yaml:"collections"`
	Models      map[string]map[string]any `yaml:"models"`
}

// LoadCatalog reads a YAML (or JSON) schema file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	cat, err := ParseCatalog(b)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes schema file content.
func ParseCatalog(b []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return nil, err
	}
	if len(cat.Collections) == 0 {
		return nil, ErrNoCollections
	}
	for name, c := range cat.Collections {
		for field, spec := range c.Fields {
			if spec.Embed && spec.Model == "" {
				return nil, fmt.Errorf("collection %s: field %s is embedded but names no model", name, field)
			}
		}
	}
	return &cat, nil
}

// Schemas returns the field schema of every collection.
func (c *Catalog) Schemas() map[string]document.Schema {
	out := make(map[string]document.Schema, len(c.Collections))
	for name, spec := range c.Collections {
		s := spec.Fields
		if s == nil {
			s = document.Schema{}
		}
		out[name] = s
	}
	return out
}

// Registry builds a model registry from the declared models. A model without
// rules is declared but cannot validate.
func (c *Catalog) Registry() (*models.Registry, error) {
	reg := models.NewRegistry()
	names := make([]string, 0, len(c.Models))
	for n := range c.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := reg.RegisterRules(n, c.Models[n]); err != nil {
			return nil, fmt.Errorf("model %s: %w", n, err)
		}
	}
	return reg, nil
}
