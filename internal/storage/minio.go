package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gogotex/docnorm/internal/config"
	"github.com/gogotex/docnorm/internal/document/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.mongodb.org/mongo-driver/bson"
)

const archiveContentType = "application/json"

// MinIOArchive keeps a copy of every stored document in an object bucket,
// one canonical Extended JSON object per document.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive creates a MinIO client and ensures the bucket exists.
func NewMinIOArchive(cfg config.MinIOConfig) (*MinIOArchive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	a := &MinIOArchive{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, a.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return a, nil
}

// ObjectKey is the object name a document is archived under.
func ObjectKey(collection string, id any) string {
	return collection + "/" + repository.KeyOf(id) + ".json"
}

// EncodeDocument renders a normalized document as canonical Extended JSON.
func EncodeDocument(values map[string]any) ([]byte, error) {
	return bson.MarshalExtJSON(bson.M(values), true, false)
}

// DecodeDocument parses canonical Extended JSON back into a document.
func DecodeDocument(b []byte) (map[string]any, error) {
	var d bson.M
	if err := bson.UnmarshalExtJSON(b, true, &d); err != nil {
		return nil, err
	}
	return map[string]any(d), nil
}

// Archive uploads values under ObjectKey(collection, id).
func (a *MinIOArchive) Archive(ctx context.Context, collection string, id any, values map[string]any) error {
	b, err := EncodeDocument(values)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ObjectKey(collection, id), err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, ObjectKey(collection, id), bytes.NewReader(b), int64(len(b)),
		minio.PutObjectOptions{ContentType: archiveContentType})
	return err
}

// Fetch reads an archived document back.
func (a *MinIOArchive) Fetch(ctx context.Context, collection string, id any) (map[string]any, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, ObjectKey(collection, id), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	// perform a stat to ensure object exists
	if _, err := obj.Stat(); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(b)
}

// Remove deletes the archived copy of a document.
func (a *MinIOArchive) Remove(ctx context.Context, collection string, id any) error {
	return a.client.RemoveObject(ctx, a.bucket, ObjectKey(collection, id), minio.RemoveObjectOptions{})
}
