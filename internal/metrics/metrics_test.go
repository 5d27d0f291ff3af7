package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveTask("generate_content", "completed", time.Second)
	m.TasksCreated("scheduler", 2)
	m.Publishes(1, 0, 0)
	m.ObserveCycle(time.Now(), time.Second, nil)
	assert.Nil(t, m.Registry())
}

func TestObserveCycleCountsDegradedStages(t *testing.T) {
	m := metrics.New()
	m.ObserveCycle(time.Unix(1700000000, 0), 3*time.Second, []string{"feed_refresh"})
	m.ObserveCycle(time.Unix(1700003600, 0), time.Second, nil)

	count, err := testutil.GatherAndCount(m.Registry(), "postpilot_coordinator_cycles_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome")

	expected := `
# HELP postpilot_coordinator_stage_failures_total Cycle stages that failed, by stage.
# TYPE postpilot_coordinator_stage_failures_total counter
postpilot_coordinator_stage_failures_total{stage="feed_refresh"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "postpilot_coordinator_stage_failures_total"))
}

func TestHandlerExposesTaskCounters(t *testing.T) {
	m := metrics.New()
	m.ObserveTask("generate_content", "failed", 1500*time.Millisecond)
	m.TasksCreated("priority", 1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `postpilot_executor_tasks_executed_total{status="failed",type="generate_content"} 1`)
	assert.Contains(t, string(body), `postpilot_scheduler_tasks_created_total{source="priority"} 1`)
}
