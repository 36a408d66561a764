package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogotex/docnorm/internal/document"
	"github.com/gogotex/docnorm/internal/models"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "docnorm_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("RATE_LIMIT_ENABLED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	require.Equal(t, "docnorm_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, "0.0.0.0:5020", cfg.Server.Addr())
}

func TestLoadConfig_RedisLimiterNeedsHost(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("RATE_LIMIT_USE_REDIS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.False(t, cfg.RateLimit.UseRedis)
	require.Equal(t, "", cfg.Redis.Addr())
}

const catalogYAML = `
collections:
  posts:
    fields:
      author: { foreignKey: true }
      meta:   { type: json }
      comment: { embed: true, model: comment }
      tag: { embed: true, model: tag }
  notes: {}
models:
  comment:
    by: required
    body: required,max=20
  tag: {}
`

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	schemas := cat.Schemas()
	require.Len(t, schemas, 2)
	require.Equal(t, document.FieldSpec{ForeignKey: true}, schemas["posts"]["author"])
	require.Equal(t, document.FieldSpec{Type: document.TypeJSON}, schemas["posts"]["meta"])
	require.Equal(t, document.FieldSpec{Embed: true, Model: "comment"}, schemas["posts"]["comment"])
	require.NotNil(t, schemas["notes"])
	require.Empty(t, schemas["notes"])

	reg, err := cat.Registry()
	require.NoError(t, err)
	require.Equal(t, []string{"comment", "tag"}, reg.Names())

	m, ok := reg.Model("comment")
	require.True(t, ok)
	v, ok := m.(document.ModelValidator)
	require.True(t, ok)
	require.NoError(t, v.Validate(context.Background(), map[string]any{"by": "a", "body": "b"}))
	require.Error(t, v.Validate(context.Background(), map[string]any{"body": "b"}))

	tag, ok := reg.Model("tag")
	require.True(t, ok)
	_, ok = tag.(document.ModelValidator)
	require.False(t, ok)
}

func TestParseCatalog_JSON(t *testing.T) {
	cat, err := ParseCatalog([]byte(`{"collections":{"posts":{"fields":{"authorId":{"foreignKey":true}}}}}`))
	require.NoError(t, err)
	// field names keep their case
	require.True(t, cat.Schemas()["posts"]["authorId"].ForeignKey)
}

func TestParseCatalog_Errors(t *testing.T) {
	_, err := ParseCatalog([]byte(`models: {}`))
	require.ErrorIs(t, err, ErrNoCollections)

	_, err = ParseCatalog([]byte("collections:\n  posts:\n    fields:\n      c: { embed: true }\n"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("collections: [nope"))
	require.Error(t, err)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCatalogRegistry_RejectsMistypedRule(t *testing.T) {
	cat, err := ParseCatalog([]byte("collections:\n  posts:\n    fields:\n      c: { embed: true, model: comment }\nmodels:\n  comment:\n    by: requird\n"))
	require.NoError(t, err)

	_, err = cat.Registry()
	require.ErrorIs(t, err, models.ErrInvalidRule)
	require.Contains(t, err.Error(), "model comment")
}
