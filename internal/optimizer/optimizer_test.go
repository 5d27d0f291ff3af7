package optimizer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/optimizer"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

func TestNormalize(t *testing.T) {
	weights := optimizer.Normalize(
		map[string]float64{"post": 30, "video": 10},
		map[string]int{"post": 3, "video": 1},
	)
	assert.Equal(t, map[string]float64{"post": 0.5, "video": 0.5}, weights)

	flat := optimizer.Normalize(map[string]float64{"a": 0, "b": 0}, map[string]int{"a": 1, "b": 2})
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 0.5}, flat)
}

func TestOptimizeStoresWeights(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDatabase(t, cfg)
	clock := testsupport.FixedClock(time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC))
	contentStore := content.NewStore(db).WithClock(clock.Now)
	projectStore := projects.NewStore(db, "09:00")
	project := testsupport.MustCreateProject(t, projectStore, "p1", "Bakery", "", `{"enabled":true}`)
	ctx := context.Background()

	add := func(kind string, engagement content.Engagement) {
		item, err := contentStore.CreateItem(ctx, content.NewItem{ProjectID: "p1", ContentType: kind, Body: "b", Status: content.StatusApproved})
		require.NoError(t, err)
		require.NoError(t, contentStore.MarkPublished(ctx, item.ID, "x"))
		require.NoError(t, contentStore.UpdateEngagement(ctx, item.ID, engagement))
	}
	add("post", content.Engagement{Likes: 3})
	add("carousel", content.Engagement{Likes: 9})

	opt := optimizer.New(contentStore, projectStore, clock.Now, logging.NewNop())
	result, err := opt.Optimize(ctx, project)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, 2, result.Samples)

	reloaded, err := projectStore.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"post": 0.25, "carousel": 0.75}, reloaded.StrategyWeights)
}

func TestOptimizeWithoutDataKeepsWeights(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDatabase(t, cfg)
	projectStore := projects.NewStore(db, "09:00")
	testsupport.MustCreateProject(t, projectStore, "p1", "Bakery", "", "")
	require.NoError(t, projectStore.UpdateStrategyWeights(context.Background(), "p1", map[string]float64{"post": 1}))

	opt := optimizer.New(content.NewStore(db), projectStore, nil, nil)
	raw, err := queue.EncodeParams(nil)
	require.NoError(t, err)
	out, err := opt.Execute(context.Background(), &queue.Task{ProjectID: "p1", Type: queue.TypePerformanceOptimize, Params: raw})
	require.NoError(t, err)
	assert.False(t, out.(optimizer.Result).Updated)

	reloaded, err := projectStore.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"post": 1}, reloaded.StrategyWeights)
}
