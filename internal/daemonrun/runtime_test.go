package daemonrun_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/daemonrun"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

func TestBuildWiresEveryTaskType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := daemonrun.Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	handlers := rt.Executor.Handlers()
	for _, taskType := range queue.KnownTaskTypes() {
		_, err := handlers.Lookup(taskType)
		assert.NoError(t, err, "handler for %s", taskType)
	}

	health, err := rt.Service.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.OK)
}

func TestBuildRejectsAnthropicWithoutCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generator.Provider = config.ProviderAnthropic
	_, err := daemonrun.Build(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}

func TestOneShotCycleWithoutProjects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := daemonrun.Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	result, err := rt.Service.RunCycle(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, result.Stages, 8)
	assert.Zero(t, result.Executed)
}
