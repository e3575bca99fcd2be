package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jjudge-oj/catalog/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		ServerPort:   0,
		JWTSecret:    "secret",
		LogLevel:     "error",
		StoreBackend: "memory",
		Storage:      config.StorageConfig{Backend: "memory"},
		MQ:           config.MQConfig{Backend: "memory", ProblemEventsChannel: "problem-events"},
		Catalog:      config.CatalogConfig{PageSize: 10, ProgressWorkers: 2},
	}
}

func TestNewWiresMemoryBackends(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	for path, want := range map[string]int{
		"/healthz":              http.StatusOK,
		"/metrics":              http.StatusOK,
		"/problems":             http.StatusOK,
		"/plugins?type=FILTER":  http.StatusOK,
		"/homeworks/1/progress": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

func TestNewRequiresJWTSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.JWTSecret = " "
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewRejectsUnknownStoreBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "mongo"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
