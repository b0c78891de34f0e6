package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_USER", "tour")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("DB_NAME", "tourism")
	t.Setenv("TOKEN_STORE", "")
	t.Setenv("BLOB_DRIVER", "")
	t.Setenv("API_PORT", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("IMPORT_INTERVAL", "")
	t.Setenv("TOKEN_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "host=localhost port=5432 user=tour password=secret dbname=tourism sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "postgres", cfg.TokenStore)
	assert.Equal(t, "local", cfg.BlobDriver)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, time.Second, cfg.ImportInterval)
	assert.Zero(t, cfg.TokenTTL)
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("TOKEN_STORE", "memcached")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("BLOB_DRIVER", "gcs")
	t.Setenv("GCS_BUCKET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "GCS_BUCKET")
}

func TestLoadSplitsCORSOrigins(t *testing.T) {
	t.Setenv("TOKEN_STORE", "")
	t.Setenv("BLOB_DRIVER", "")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}
