package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineOptionsDefaults(t *testing.T) {
	opts := NewEngineOptions()

	assert.NotNil(t, opts.Ctx)
	assert.Equal(t, 16, opts.MaxConcurrentRuns)
	assert.Equal(t, 10, opts.MaxWhileIterations)
	assert.Equal(t, 12000, opts.LLMInputLimit)
	assert.False(t, opts.DetectCycles)
	assert.False(t, opts.MergeInputs)
	assert.False(t, opts.MemStore)
	assert.Empty(t, opts.ProviderKey)
	assert.Nil(t, opts.PostgresConfig)
}

func TestWithPostgresConfig(t *testing.T) {
	config := &PostgresConfig{
		Host:     "dbhost",
		Port:     5433,
		User:     "user",
		Password: "pass",
		Database: "db",
		SSLMode:  "require",
	}

	opts := NewEngineOptions()
	WithPostgresConfig(config)(opts)

	assert.NotNil(t, opts.PostgresConfig)
	assert.Equal(t, "dbhost", opts.PostgresConfig.Host)
	assert.Equal(t, 5433, opts.PostgresConfig.Port)
	assert.Equal(t, "require", opts.PostgresConfig.SSLMode)
}

func TestMultipleOptions(t *testing.T) {
	opts := NewEngineOptions()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	WithContext(ctx)(opts)
	SetMaxConcurrentRuns(2)(opts)
	SetMaxWhileIterations(3)(opts)
	SetLLMInputLimit(100)(opts)
	WithProviderKey("static")(opts)
	EnableCycleDetection()(opts)
	EnableInputMerge()(opts)
	WithArtifactDir("/tmp/runs")(opts)

	assert.Equal(t, ctx, opts.Ctx)
	assert.Equal(t, 2, opts.MaxConcurrentRuns)
	assert.Equal(t, 3, opts.MaxWhileIterations)
	assert.Equal(t, 100, opts.LLMInputLimit)
	assert.Equal(t, "static", opts.ProviderKey)
	assert.True(t, opts.DetectCycles)
	assert.True(t, opts.MergeInputs)
	assert.Equal(t, "/tmp/runs", opts.ArtifactDir)
}
