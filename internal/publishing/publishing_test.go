package publishing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viadorer/orchestrator-sub001/internal/activity"
	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/publishing"
	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/services/publisher"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

type env struct {
	content  *content.Store
	projects *projects.Store
	activity *activity.Store
	clock    *testsupport.Clock
}

func newEnv(t *testing.T) env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDatabase(t, cfg)
	clock := testsupport.FixedClock(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	return env{
		content:  content.NewStore(db).WithClock(clock.Now),
		projects: projects.NewStore(db, "09:00"),
		activity: activity.NewStore(db),
		clock:    clock,
	}
}

func (e env) approved(t *testing.T, projectID, body string, score float64) *content.Item {
	t.Helper()
	item, err := e.content.CreateItem(context.Background(), content.NewItem{
		ProjectID: projectID, Body: body, Score: score, Status: content.StatusApproved,
	})
	require.NoError(t, err)
	return item
}

func postingServer(t *testing.T, failBody string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/posts":
			n := calls.Add(1)
			var payload publisher.Payload
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if failBody != "" && strings.Contains(payload.Text, failBody) {
				http.Error(w, "rejected", http.StatusUnprocessableEntity)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "ext-" + string(rune('0'+n))})
		case strings.HasSuffix(r.URL.Path, "/analytics"):
			if strings.Contains(r.URL.Path, "ext-bad") {
				http.Error(w, "gone", http.StatusGone)
				return
			}
			_ = json.NewEncoder(w).Encode(publisher.Engagement{Likes: 4, Shares: 1})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestSweepPublishesAboveThreshold(t *testing.T) {
	e := newEnv(t)
	server, calls := postingServer(t, "broken")
	pub := publisher.NewClient(config.Publisher{BaseURL: server.URL, APIKey: "k"}, nil)
	svc := publishing.New(pub, e.content, activity.NewBestEffort(e.activity, nil), publishing.Options{Now: e.clock.Now}, logging.NewNop())

	auto := testsupport.MustCreateProject(t, e.projects, "auto", "Auto", "", `{"enabled":true,"auto_publish":true,"auto_publish_threshold":7}`)
	manual := testsupport.MustCreateProject(t, e.projects, "manual", "Manual", "", `{"enabled":true}`)

	good := e.approved(t, "auto", "great post", 9)
	e.approved(t, "auto", "weak post", 5)
	bad := e.approved(t, "auto", "broken post", 8)
	e.approved(t, "manual", "never auto published", 10)

	result, err := svc.Sweep(context.Background(), []*projects.Project{auto, manual})
	require.NoError(t, err)
	assert.Equal(t, publishing.SweepResult{Published: 1, Failed: 1, Skipped: 1}, result)
	assert.EqualValues(t, 2, calls.Load())

	item, err := e.content.GetItem(context.Background(), good.ID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusPublished, item.Status)
	assert.NotEmpty(t, item.ExternalID)

	failed, err := e.content.GetItem(context.Background(), bad.ID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusPublishFailed, failed.Status)
	assert.Contains(t, failed.PublishError, "422")

	entries, err := e.activity.List(context.Background(), "auto", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	actions := []string{entries[0].Action, entries[1].Action}
	assert.ElementsMatch(t, []string{activity.ActionContentPublished, activity.ActionPublishFailed}, actions)
}

type listFailingContent struct {
	*content.Store
	failProject string
}

func (c listFailingContent) ListApproved(ctx context.Context, projectID string) ([]*content.Item, error) {
	if projectID == c.failProject {
		return nil, errors.New("database is locked")
	}
	return c.Store.ListApproved(ctx, projectID)
}

func TestSweepContinuesPastFailingProject(t *testing.T) {
	e := newEnv(t)
	server, calls := postingServer(t, "")
	pub := publisher.NewClient(config.Publisher{BaseURL: server.URL, APIKey: "k"}, nil)
	store := listFailingContent{Store: e.content, failProject: "locked"}
	svc := publishing.New(pub, store, nil, publishing.Options{Now: e.clock.Now}, logging.NewNop())

	locked := testsupport.MustCreateProject(t, e.projects, "locked", "Locked", "", `{"enabled":true,"auto_publish":true}`)
	open := testsupport.MustCreateProject(t, e.projects, "open", "Open", "", `{"enabled":true,"auto_publish":true}`)
	e.approved(t, "locked", "stuck post", 10)
	good := e.approved(t, "open", "ready post", 10)

	result, err := svc.Sweep(context.Background(), []*projects.Project{locked, open})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list approved content for locked")
	assert.Equal(t, publishing.SweepResult{Published: 1}, result)
	assert.EqualValues(t, 1, calls.Load())

	item, err := e.content.GetItem(context.Background(), good.ID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusPublished, item.Status)
}

func TestSweepSkipsWhenPublisherUnconfigured(t *testing.T) {
	e := newEnv(t)
	pub := publisher.NewClient(config.Publisher{}, nil)
	svc := publishing.New(pub, e.content, nil, publishing.Options{}, nil)
	auto := testsupport.MustCreateProject(t, e.projects, "auto", "Auto", "", `{"enabled":true,"auto_publish":true}`)
	e.approved(t, "auto", "post", 10)

	result, err := svc.Sweep(context.Background(), []*projects.Project{auto})
	require.NoError(t, err)
	assert.Equal(t, publishing.SweepResult{Skipped: 1}, result)
}

func TestRefreshEngagementCountsFailures(t *testing.T) {
	e := newEnv(t)
	server, _ := postingServer(t, "")
	pub := publisher.NewClient(config.Publisher{BaseURL: server.URL, APIKey: "k"}, nil)
	svc := publishing.New(pub, e.content, nil, publishing.Options{Now: e.clock.Now, MinAge: 24 * time.Hour}, nil)
	ctx := context.Background()

	old := e.approved(t, "p", "old post", 9)
	require.NoError(t, e.content.MarkPublished(ctx, old.ID, "ext-old"))
	gone := e.approved(t, "p", "deleted post", 9)
	require.NoError(t, e.content.MarkPublished(ctx, gone.ID, "ext-bad"))
	e.clock.Advance(25 * time.Hour)
	fresh := e.approved(t, "p", "fresh post", 9)
	require.NoError(t, e.content.MarkPublished(ctx, fresh.ID, "ext-fresh"))

	result, err := svc.RefreshEngagement(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, publishing.EngagementResult{Updated: 1, Failed: 1}, result)

	item, err := e.content.GetItem(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, item.Engagement)
	assert.Equal(t, 4, item.Engagement.Likes)
}

func TestPublishCheckHandler(t *testing.T) {
	e := newEnv(t)
	server, _ := postingServer(t, "")
	pub := publisher.NewClient(config.Publisher{BaseURL: server.URL, APIKey: "k"}, nil)
	svc := publishing.New(pub, e.content, nil, publishing.Options{}, nil)
	ctx := context.Background()

	item := e.approved(t, "p", "hand picked", 3)
	raw, err := queue.EncodeParams(queue.PublishCheckParams{ContentID: item.ID})
	require.NoError(t, err)
	out, err := svc.PublishCheck().Execute(ctx, &queue.Task{Type: queue.TypePublishCheck, Params: raw})
	require.NoError(t, err)
	assert.True(t, out.(publisher.Result).OK)

	review, err := e.content.CreateItem(ctx, content.NewItem{ProjectID: "p", Body: "draft"})
	require.NoError(t, err)
	raw, err = queue.EncodeParams(queue.PublishCheckParams{ContentID: review.ID})
	require.NoError(t, err)
	_, err = svc.PublishCheck().Execute(ctx, &queue.Task{Type: queue.TypePublishCheck, Params: raw})
	assert.ErrorIs(t, err, services.ErrValidation)
}
