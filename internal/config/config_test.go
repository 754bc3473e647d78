package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/scheduler/optimizer"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "menzhen", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 3*time.Minute, cfg.Scheduler.Deadline)
	assert.Empty(t, cfg.Scheduler.CatalogPath)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	// 默认值与优化器默认配置一致
	assert.Equal(t, optimizer.DefaultConfig(), cfg.OptimizerConfig())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("SCHEDULER_DEADLINE", "30s")
	t.Setenv("SCHEDULER_SEED", "7")
	t.Setenv("SCHEDULER_WORKERS", "2")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())

	oc := cfg.OptimizerConfig()
	assert.Equal(t, 30*time.Second, oc.Deadline)
	assert.Equal(t, int64(7), oc.Seed)
	assert.Equal(t, 2, oc.Workers)
	assert.True(t, cfg.Metrics.Enabled)

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "stderr", lc.Output)
}

func TestParse_Invalid(t *testing.T) {
	t.Setenv("SCHEDULER_POPULATION_SIZE", "many")

	_, err := Parse()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfig))
	assert.Equal(t, 3, apperrors.ExitCode(err))
}
