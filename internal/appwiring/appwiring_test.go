package appwiring_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/appwiring"
	"github.com/casatico/stayfly/internal/config"
)

// memoryOnlyConfig leaves Postgres, Redis, web search, Apify, and blob
// storage unconfigured so Build never dials a network dependency.
func memoryOnlyConfig() *config.Config {
	return &config.Config{
		HTTPPort:   8080,
		HealthPort: 9090,
		CheapModel: config.ChatModelConfig{Provider: config.ChatModelProviderOllama, Model: "llama3"},
		StrongModel: config.ChatModelConfig{
			Provider: config.ChatModelProviderOllama,
			Model:    "llama3:70b",
		},
		Embedder: config.EmbedderConfig{
			Provider:  config.EmbedderProviderOllama,
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		Cache:                 config.CacheConfig{SimilarityThreshold: 0.95},
		TaskWorkerConcurrency: 2,
	}
}

func TestBuildWiresAMemoryOnlyAppWithoutDialingNetworkDependencies(t *testing.T) {
	app, err := appwiring.Build(context.Background(), memoryOnlyConfig(), "", zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.Tasks)
	assert.NotNil(t, app.Cache)
	assert.NotNil(t, app.Pipeline)
	assert.NotNil(t, app.Orchestrator)
	assert.NotNil(t, app.Runner)
	assert.NotNil(t, app.Scheduler)
	assert.Nil(t, app.ApifyClient, "no apify token configured")
}

func TestBuildSchedulesTheReprocessSweepWhenConfigured(t *testing.T) {
	cfg := memoryOnlyConfig()
	cfg.ReprocessCronSchedule = "0 3 * * *"

	app, err := appwiring.Build(context.Background(), cfg, "", zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Scheduler)
}
