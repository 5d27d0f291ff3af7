package vision_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
	"github.com/viadorer/orchestrator-sub001/internal/vision"
)

func TestProcessBatchTagsAndRecordsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := content.NewStore(testsupport.MustOpenDatabase(t, cfg))
	ctx := context.Background()

	good, err := store.AddMedia(ctx, "p1", "https://cdn.example/good.jpg")
	require.NoError(t, err)
	bad, err := store.AddMedia(ctx, "p1", "https://cdn.example/bad.jpg")
	require.NoError(t, err)
	_, err = store.AddMedia(ctx, "p1", "https://cdn.example/later.jpg")
	require.NoError(t, err)

	completer := testsupport.NewCompleter(
		`{"description":"A  warm bakery counter","tags":["Bread","  counter ","morning"]}`,
		`{"description":"nothing","tags":[]}`,
	)
	tagger := vision.New(completer, store, 10, logging.NewNop())

	result, err := tagger.ProcessBatch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, vision.BatchResult{Processed: 1, Failed: 1}, result)
	assert.Equal(t, good.URL, completer.Calls[0].ImageURL)

	media, err := store.ListMedia(ctx, "p1", 0)
	require.NoError(t, err)
	byID := map[string]*content.MediaAsset{}
	for _, m := range media {
		byID[m.ID] = m
	}
	assert.Equal(t, []string{"bread", "counter", "morning"}, byID[good.ID].Tags)
	assert.Equal(t, "A warm bakery counter", byID[good.ID].Description)
	assert.True(t, byID[bad.ID].Processed)
	assert.NotEmpty(t, byID[bad.ID].ErrorMessage)

	remaining, err := store.ListUnprocessedMedia(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "batch must respect its limit")
}

func TestExecuteUsesDefaultLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := content.NewStore(testsupport.MustOpenDatabase(t, cfg))
	ctx := context.Background()
	for _, url := range []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg"} {
		_, err := store.AddMedia(ctx, "p1", url)
		require.NoError(t, err)
	}
	tagger := vision.New(testsupport.NewCompleter(`{"description":"x","tags":["x"]}`), store, 2, nil)

	raw, err := queue.EncodeParams(nil)
	require.NoError(t, err)
	result, err := tagger.Execute(ctx, &queue.Task{Type: queue.TypeMediaProcess, Params: raw})
	require.NoError(t, err)
	assert.Equal(t, vision.BatchResult{Processed: 2}, result)
}

func TestProcessBatchWithoutProviderFails(t *testing.T) {
	tagger := vision.New(nil, nil, 5, nil)
	_, err := tagger.ProcessBatch(context.Background(), 5)
	assert.Error(t, err)
	assert.False(t, tagger.HealthCheck(context.Background()).Ready)
}
