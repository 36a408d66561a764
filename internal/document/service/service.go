package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gogotex/docnorm/internal/document"
	"github.com/gogotex/docnorm/internal/document/repository"
	"github.com/gogotex/docnorm/pkg/logger"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("duplicate id")
)

var log = logger.Named("service")

// InvalidDocumentError reports embedded documents that failed validation.
type InvalidDocumentError struct {
	Collection string
	Report     *document.ValidationReport
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid %s document: %v", e.Collection, e.Report.Err())
}

func (e *InvalidDocumentError) Unwrap() error { return e.Report.Err() }

// Archiver keeps an external copy of stored documents. Fetch serves reads
// the repository can no longer answer.
type Archiver interface {
	Archive(ctx context.Context, collection string, id any, values map[string]any) error
	Fetch(ctx context.Context, collection string, id any) (map[string]any, error)
	Remove(ctx context.Context, collection string, id any) error
}

// Created is the result of a successful Create.
type Created struct {
	ID       any
	Document map[string]any
}

// Service defines the document operations used by the handler layer and the
// CLI.
type Service interface {
	Collections() []string
	Normalize(collection string, raw map[string]any) (map[string]any, error)
	Check(ctx context.Context, collection string, raw map[string]any) (map[string]any, *document.ValidationReport, error)
	Create(ctx context.Context, collection string, raw map[string]any) (*Created, error)
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	List(ctx context.Context, collection string) ([]map[string]any, error)
	Delete(ctx context.Context, collection, id string) error
}

type Option func(*docService)

// WithArchiver copies every created document to a.
func WithArchiver(a Archiver) Option {
	return func(s *docService) { s.archiver = a }
}

// WithSerializer overrides the field serializer used for normalization.
func WithSerializer(ser *document.Serializer) Option {
	return func(s *docService) { s.serializer = ser }
}

// New returns a Service storing documents in repo. schemas lists the known
// collections; reg resolves the models of embedded fields and may be nil.
func New(repo repository.Repository, schemas map[string]document.Schema, reg document.ModelRegistry, opts ...Option) Service {
	s := &docService{
		repo:      repo,
		schemas:   schemas,
		validator: document.NewSubDocumentValidator(reg),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(schemas map[string]document.Schema, reg document.ModelRegistry, opts ...Option) Service {
	return New(repository.NewMemoryRepo(), schemas, reg, opts...)
}

type docService struct {
	repo       repository.Repository
	schemas    map[string]document.Schema
	validator  *document.SubDocumentValidator
	serializer *document.Serializer
	archiver   Archiver
}

func (s *docService) Collections() []string {
	out := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *docService) schema(collection string) (document.Schema, error) {
	schema, ok := s.schemas[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return schema, nil
}

func (s *docService) build(collection string, raw map[string]any) (*document.Document, error) {
	schema, err := s.schema(collection)
	if err != nil {
		return nil, err
	}
	var opts []document.Option
	if s.serializer != nil {
		opts = append(opts, document.WithSerializer(s.serializer))
	}
	return document.New(raw, schema, opts...), nil
}

func (s *docService) Normalize(collection string, raw map[string]any) (map[string]any, error) {
	d, err := s.build(collection, raw)
	if err != nil {
		return nil, err
	}
	return d.Values(), nil
}

func (s *docService) Check(ctx context.Context, collection string, raw map[string]any) (map[string]any, *document.ValidationReport, error) {
	d, err := s.build(collection, raw)
	if err != nil {
		return nil, nil, err
	}
	return d.Values(), d.ValidateSubDocuments(ctx, s.validator), nil
}

func (s *docService) Create(ctx context.Context, collection string, raw map[string]any) (*Created, error) {
	values, report, err := s.Check(ctx, collection, raw)
	if err != nil {
		return nil, err
	}
	if report.Err() != nil {
		log.Debugf("rejected %s document: %v", collection, report.Err())
		return nil, &InvalidDocumentError{Collection: collection, Report: report}
	}

	id, err := s.repo.Insert(ctx, collection, values)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateID, values[document.PKField])
		}
		return nil, err
	}
	values[document.PKField] = id

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, collection, id, values); err != nil {
			log.Warnf("archive %s/%v: %v", collection, id, err)
		}
	}
	log.Debugf("created %s/%v", collection, id)
	return &Created{ID: id, Document: values}, nil
}

func (s *docService) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	if _, err := s.schema(collection); err != nil {
		return nil, err
	}
	pk := document.ParseID(id)
	d, err := s.repo.Get(ctx, collection, pk)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if d, ok := s.fetchArchived(ctx, collection, pk); ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (s *docService) fetchArchived(ctx context.Context, collection string, pk any) (map[string]any, bool) {
	if s.archiver == nil {
		return nil, false
	}
	d, err := s.archiver.Fetch(ctx, collection, pk)
	if err != nil {
		log.Debugf("no archived copy of %s/%v: %v", collection, pk, err)
		return nil, false
	}
	log.Debugf("served %s/%v from archive", collection, pk)
	return d, true
}

func (s *docService) List(ctx context.Context, collection string) ([]map[string]any, error) {
	if _, err := s.schema(collection); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, collection)
}

func (s *docService) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.schema(collection); err != nil {
		return err
	}
	pk := document.ParseID(id)
	err := s.repo.Delete(ctx, collection, pk)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	found := err == nil
	if !found {
		// an archive-only document is still addressable, so it can be deleted
		_, found = s.fetchArchived(ctx, collection, pk)
	}
	if !found {
		return ErrNotFound
	}
	if s.archiver != nil {
		if err := s.archiver.Remove(ctx, collection, pk); err != nil {
			log.Warnf("remove archived %s/%v: %v", collection, pk, err)
		}
	}
	return nil
}
