package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultGlobalTimeout, cfg.Timeouts.Global)
	assert.InDelta(t, 1.0, sumWeights(cfg.Ranking.Weights), weightSumTolerance)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reposcan.yaml")

	contents := "workers: 8\ntimeouts:\n  global: 120s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := &Config{
		Workers: 1,
		Timeouts: TimeoutsConfig{Global: 1},
		Ranking: RankingConfig{Weights: map[string]float64{"commits": 0.5, "churn": 0.6}},
	}

	err := Validate(cfg)

	require.ErrorIs(t, err, ErrWeightsDoNotSumToOne)
}

func TestValidateRejectsNonPositiveWorkers(t *testing.T) {
	cfg := &Config{
		Workers:  0,
		Timeouts: TimeoutsConfig{Global: 1},
		Ranking:  RankingConfig{Weights: DefaultWeights},
	}

	err := Validate(cfg)

	require.ErrorIs(t, err, ErrInvalidWorkers)
}

func sumWeights(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}

	return sum
}
