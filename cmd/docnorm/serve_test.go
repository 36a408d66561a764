package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docnorm/internal/config"
	"github.com/gogotex/docnorm/internal/document"
	"github.com/gogotex/docnorm/internal/document/service"
	"github.com/gogotex/docnorm/internal/models"
	"github.com/gogotex/docnorm/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RPS: 100, Burst: 100}}
	svc := service.NewMemoryService(map[string]document.Schema{"posts": {}}, models.NewRegistry())
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	r := newRouter(cfg, svc, nil, reg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/collections/posts/normalize", strings.NewReader(`{"a.b":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "docnorm_documents_normalized_total")
}
