package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1/timetables", cfg.APIPrefix)
	assert.Equal(t, 60*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 3, cfg.Engine.MinCandidates)
	assert.Equal(t, []string{"balanced", "compact", "spread"}, cfg.Engine.AlgorithmVariants)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 5000, cfg.Store.MaxDetailRows)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENGINE_BASE_URL", "http://engine:9000/")
	t.Setenv("ENGINE_TIMEOUT", "5s")
	t.Setenv("ENGINE_MIN_CANDIDATES", "0")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://engine:9000", cfg.Engine.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 3, cfg.Engine.MinCandidates)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsDotenvFile(t *testing.T) {
	// Empty values keep godotenv from exporting the file into the process and let the
	// file win in viper, which ignores empty environment variables.
	t.Setenv("PORT", "")
	t.Setenv("MAX_DETAIL_ROWS", "")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\nMAX_DETAIL_ROWS=25\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, 25, cfg.Store.MaxDetailRows)
}
