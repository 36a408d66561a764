package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/docnorm/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository. Each document collection
// maps to the Mongo collection of the same name; documents are written as
// normalized, so ObjectIDs land in "_id" and foreign-key fields natively.
type MongoRepo struct {
	db *mongo.Database
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{db: db}
}

func (m *MongoRepo) Insert(ctx context.Context, collection string, values map[string]any) (any, error) {
	doc := document.Clone(values)
	id := ensureID(doc)
	if _, err := m.db.Collection(collection).InsertOne(ctx, bson.M(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

func (m *MongoRepo) Get(ctx context.Context, collection string, id any) (map[string]any, error) {
	var d bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{document.PKField: id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return map[string]any(d), nil
}

func (m *MongoRepo) List(ctx context.Context, collection string) ([]map[string]any, error) {
	opts := options.Find().SetSort(bson.D{{Key: document.PKField, Value: 1}})
	cur, err := m.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []map[string]any{}
	for cur.Next(ctx) {
		var d bson.M
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, map[string]any(d))
	}
	return out, cur.Err()
}

func (m *MongoRepo) Delete(ctx context.Context, collection string, id any) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{document.PKField: id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
