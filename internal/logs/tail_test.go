package logs_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postpilot.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, result.Lines)
	assert.EqualValues(t, 6, result.Offset)
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Zero(t, result.Offset)
}

func TestTailFromOffsetAfterTruncation(t *testing.T) {
	path := writeLog(t, "one\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 1000})
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.EqualValues(t, 4, result.Offset)
}

func TestTailFiltersJSONLines(t *testing.T) {
	path := writeLog(t, ""+
		`{"time":"2026-10-19T09:00:00Z","level":"INFO","msg":"cycle started","component":"coordinator"}`+"\n"+
		`{"time":"2026-10-19T09:00:01Z","level":"ERROR","msg":"task failed","project_id":"acme","task_id":"t-1"}`+"\n"+
		`{"time":"2026-10-19T09:00:02Z","level":"WARN","msg":"feed skipped","project_id":"other"}`+"\n"+
		`{"time":"2026-10-19T09:00:03Z","level":"INFO","msg":"task completed","project_id":"acme","task_id":"t-2"}`+"\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1,
		Limit:  10,
		Filter: logs.Filter{ProjectID: "acme"},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	assert.Contains(t, result.Lines[0], "t-1")
	assert.Contains(t, result.Lines[1], "t-2")

	result, err = logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: 0,
		Filter: logs.Filter{MinLevel: slog.LevelWarn},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	assert.Contains(t, result.Lines[0], "task failed")
	assert.Contains(t, result.Lines[1], "feed skipped")
}

func TestFilterConsoleLines(t *testing.T) {
	filter := logs.Filter{MinLevel: slog.LevelWarn, Component: "publishing"}
	assert.True(t, filter.Match("2026-10-19T09:00:00Z WARN publishing: publish failed project_id=acme"))
	assert.False(t, filter.Match("2026-10-19T09:00:00Z INFO publishing: published item"))
	assert.False(t, filter.Match("2026-10-19T09:00:00Z ERROR feeds: fetch failed"))
	assert.True(t, logs.Filter{}.Match("anything"))
}

func TestParseLevel(t *testing.T) {
	level, ok := logs.ParseLevel("warn")
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn, level)

	_, ok = logs.ParseLevel("loud")
	assert.False(t, ok)
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)

	type outcome struct {
		res logs.TailResult
		err error
	}
	done := make(chan outcome, 1)
	go func(offset int64) {
		res, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: offset,
			Follow: true,
			Wait:   5 * time.Second,
			Filter: logs.Filter{TaskID: "t-9"},
		})
		done <- outcome{res: res, err: err}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("noise\nlater task_id=t-9\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, []string{"later task_id=t-9"}, got.res.Lines)
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}
