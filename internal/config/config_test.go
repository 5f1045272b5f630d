package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: \"9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 10, cfg.Model.TopN)
	assert.Equal(t, "./data/reviews.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.History.Limit)
	assert.Equal(t, "cinesense_session", cfg.Session.CookieName)
	assert.Equal(t, 10000, cfg.Training.MaxFeatures)
	assert.Equal(t, 0.2, cfg.Training.TestSize)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 1000, cfg.Training.MaxIter)
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("CINESENSE_TEST_SECRET", "s3cret")
	cfg, err := LoadConfig(writeConfig(t, "session:\n  secret: ${CINESENSE_TEST_SECRET}\nmodel:\n  top_n: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 5, cfg.Model.TopN)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestRepositoryConfigFileLoads(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yml"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Model.VectorizerPath)
	assert.NotEmpty(t, cfg.Server.Port)
}
