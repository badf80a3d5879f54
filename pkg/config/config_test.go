package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, SchemaNone, cfg.Database.SchemaMode)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadSchemaModeFromEnv(t *testing.T) {
	t.Setenv("DB_SCHEMA_MODE", "recreate")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SchemaRecreate, cfg.Database.SchemaMode)
}

func TestLoadRejectsUnknownSchemaMode(t *testing.T) {
	t.Setenv("DB_SCHEMA_MODE", "drop-everything")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, appErrors.IsConfiguration(err))
}

func TestParseSchemaMode(t *testing.T) {
	mode, err := ParseSchemaMode("  Validate-Only ")
	require.NoError(t, err)
	assert.Equal(t, SchemaValidateOnly, mode)

	for _, raw := range []string{"recreate", "recreate-persistent", "migrate", "none"} {
		_, err := ParseSchemaMode(raw)
		assert.NoError(t, err)
	}

	_, err = ParseSchemaMode("update")
	assert.Error(t, err)
}
