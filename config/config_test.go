package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "problems/", cfg.Storage.KeyPrefix)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, "problem-events", cfg.MQ.ProblemEventsChannel)
	assert.Equal(t, 50, cfg.Catalog.PageSize)
	assert.Equal(t, 8, cfg.Catalog.ProgressWorkers)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "judge-blobs")
	t.Setenv("CATALOG_PAGE_SIZE", "20")
	t.Setenv("DB_SSL", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "gcs", cfg.Storage.Backend)
	assert.Equal(t, "judge-blobs", cfg.Storage.GCS.Bucket)
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.True(t, cfg.Database.UseSSL)
}

func TestLoadConfigRejectsNonPositivePageSize(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
