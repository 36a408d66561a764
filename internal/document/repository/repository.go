// Package repository persists normalized documents.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/docnorm/internal/document"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrDuplicateID = errors.New("document id already exists")
)

// Repository stores normalized documents grouped by collection. Ids are the
// values found under "_id": an ObjectID, a string or any other scalar.
type Repository interface {
	Insert(ctx context.Context, collection string, values map[string]any) (any, error)
	Get(ctx context.Context, collection string, id any) (map[string]any, error)
	List(ctx context.Context, collection string) ([]map[string]any, error)
	Delete(ctx context.Context, collection string, id any) error
}

// KeyOf renders an id as a string that keeps ObjectIDs and strings with the
// same text apart.
func KeyOf(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return "s:" + v
	}
	return fmt.Sprintf("%T:%v", id, id)
}

// ensureID assigns a fresh ObjectID when values carries no primary key.
func ensureID(values map[string]any) any {
	id, ok := values[document.PKField]
	if !ok {
		id = primitive.NewObjectID()
		values[document.PKField] = id
	}
	return id
}
