package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warriorguo/hyperbuild/types"
)

func lookupOf(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, exists := env[key]
		return v, exists
	}
}

func applied(t *testing.T, c *Config) *types.EngineOptions {
	opts, err := c.EngineOptions()
	require.NoError(t, err)
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func TestFromLookup_Defaults(t *testing.T) {
	c, err := FromLookup(lookupOf(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "fetch", c.Provider)
	assert.Equal(t, 16, c.MaxRuns)
	assert.Equal(t, 10, c.WhileCap)
	assert.Equal(t, "*", c.CORSOrigin)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.False(t, c.DetectCycles)

	options := applied(t, c)
	assert.True(t, options.MemStore)
	assert.Equal(t, "fetch", options.ProviderKey)
	assert.Nil(t, options.PostgresConfig)
}

func TestFromLookup_Overrides(t *testing.T) {
	c, err := FromLookup(lookupOf(map[string]string{
		"HYPERBUILD_ADDR":          "127.0.0.1:9000",
		"HYPERBUILD_PROVIDER":      "static",
		"HYPERBUILD_ARTIFACT_DIR":  "/tmp/artifacts",
		"HYPERBUILD_MAX_RUNS":      "4",
		"HYPERBUILD_WHILE_CAP":     " 3 ",
		"HYPERBUILD_DETECT_CYCLES": "true",
		"HYPERBUILD_MERGE_INPUTS":  "1",
		"HYPERBUILD_LOG_LEVEL":     "debug",
		"HYPERBUILD_LOG_FORMAT":    "json",
		"OPENAI_MODEL":             "gpt-4o",
		"HYPERBUILD_CORS_ORIGIN":   "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", c.Addr)
	assert.Equal(t, "gpt-4o", c.OpenAIModel)
	assert.Equal(t, "*", c.CORSOrigin)

	options := applied(t, c)
	assert.Equal(t, "static", options.ProviderKey)
	assert.Equal(t, "/tmp/artifacts", options.ArtifactDir)
	assert.False(t, options.MemStore)
	assert.Equal(t, 4, options.MaxConcurrentRuns)
	assert.Equal(t, 3, options.MaxWhileIterations)
	assert.True(t, options.DetectCycles)
	assert.True(t, options.MergeInputs)
}

func TestFromLookup_Postgres(t *testing.T) {
	c, err := FromLookup(lookupOf(map[string]string{
		"HYPERBUILD_POSTGRES_DSN": "host=db port=6543 user=hb password=secret dbname=runs sslmode=require",
		"HYPERBUILD_ARTIFACT_DIR": "/ignored",
	}))
	require.NoError(t, err)

	options := applied(t, c)
	require.NotNil(t, options.PostgresConfig)
	assert.Equal(t, &types.PostgresConfig{
		Host:     "db",
		Port:     6543,
		User:     "hb",
		Password: "secret",
		Database: "runs",
		SSLMode:  "require",
	}, options.PostgresConfig)
	assert.Empty(t, options.ArtifactDir)
}

func TestFromLookup_Invalid(t *testing.T) {
	testCases := map[string]string{
		"HYPERBUILD_MAX_RUNS":      "many",
		"HYPERBUILD_WHILE_CAP":     "-1",
		"HYPERBUILD_DETECT_CYCLES": "sometimes",
		"HYPERBUILD_LOG_LEVEL":     "loud",
		"HYPERBUILD_LOG_FORMAT":    "xml",
		"HYPERBUILD_POSTGRES_DSN":  "host=db sslmode=bogus",
	}
	for key, value := range testCases {
		_, err := FromLookup(lookupOf(map[string]string{key: value}))
		assert.Error(t, err, key)
	}

	_, err := FromLookup(lookupOf(map[string]string{"HYPERBUILD_MAX_RUNS": "many"}))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("HYPERBUILD_WHILE_CAP=7\nHYPERBUILD_PROVIDER=from-file\n"), 0o644))

	// godotenv never overrides variables that are already set
	t.Setenv("HYPERBUILD_PROVIDER", "from-env")
	t.Cleanup(func() { os.Unsetenv("HYPERBUILD_WHILE_CAP") })

	c, err := Load(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 7, c.WhileCap)
	assert.Equal(t, "from-env", c.Provider)
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	c := &Config{LogLevel: "warn", LogFormat: "json"}
	c.ConfigureLogging()
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	c = &Config{LogLevel: "bogus", LogFormat: "text"}
	c.ConfigureLogging()
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}
