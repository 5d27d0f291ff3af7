package content_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

func openStore(t *testing.T) (*content.Store, *testsupport.Clock) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	clock := testsupport.FixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return content.NewStore(testsupport.MustOpenDatabase(t, cfg)).WithClock(clock.Now), clock
}

func TestItemReviewAndPublishFlow(t *testing.T) {
	store, clock := openStore(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, content.NewItem{
		ProjectID: "p", Body: "Fresh bread every morning", Topic: "bread", Score: 8.5,
		Hashtags: []string{"#bakery"},
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Status != content.StatusReview || item.Platform != "facebook" {
		t.Fatalf("unexpected defaults: %#v", item)
	}

	if err := store.SetStatus(ctx, item.ID, content.StatusApproved, content.StatusPublished); !errors.Is(err, services.ErrInconsistent) {
		t.Fatalf("expected inconsistency for wrong source status, got %v", err)
	}
	if err := store.SetStatus(ctx, item.ID, content.StatusReview, content.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	approved, err := store.ListApproved(ctx, "p")
	if err != nil || len(approved) != 1 {
		t.Fatalf("ListApproved = %v, %v", approved, err)
	}

	if err := store.MarkPublished(ctx, item.ID, "ext-1"); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	clock.Advance(48 * time.Hour)
	stale, err := store.ListForEngagement(ctx, clock.Now().Add(-24*time.Hour), 10)
	if err != nil || len(stale) != 1 {
		t.Fatalf("ListForEngagement = %v, %v", stale, err)
	}
	if err := store.UpdateEngagement(ctx, item.ID, content.Engagement{Likes: 3, Shares: 1}); err != nil {
		t.Fatalf("UpdateEngagement: %v", err)
	}

	got, err := store.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Status != content.StatusPublished || got.ExternalID != "ext-1" {
		t.Fatalf("publish not persisted: %#v", got)
	}
	if got.Engagement == nil || got.Engagement.Score() != 6 {
		t.Fatalf("engagement not persisted: %#v", got.Engagement)
	}
	if len(got.Hashtags) != 1 || got.Hashtags[0] != "#bakery" {
		t.Fatalf("hashtags = %v", got.Hashtags)
	}
}

func TestEmbeddingBacklog(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	for _, body := range []string{"one", "two"} {
		item, err := store.CreateItem(ctx, content.NewItem{ProjectID: "p", Body: body, Status: content.StatusApproved})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		if err := store.MarkPublished(ctx, item.ID, "x-"+body); err != nil {
			t.Fatalf("MarkPublished: %v", err)
		}
	}
	pending, err := store.ListUnembedded(ctx, 1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListUnembedded = %v, %v", pending, err)
	}
	if err := store.SaveEmbedding(ctx, pending[0].ID, []float64{0.1, 0.2}, ""); err != nil {
		t.Fatalf("SaveEmbedding: %v", err)
	}
	embedded, err := store.ListEmbedded(ctx, "p")
	if err != nil || len(embedded) != 1 || len(embedded[0].Embedding) != 2 {
		t.Fatalf("ListEmbedded = %v, %v", embedded, err)
	}
	rest, _ := store.ListUnembedded(ctx, 10)
	if len(rest) != 1 {
		t.Fatalf("expected one remaining, got %d", len(rest))
	}
}

func TestMediaBacklog(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	a, _ := store.AddMedia(ctx, "p", "https://cdn.example/a.jpg")
	b, _ := store.AddMedia(ctx, "p", "https://cdn.example/b.jpg")
	if _, err := store.AddMedia(ctx, "p", " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := store.MarkMediaProcessed(ctx, a.ID, []string{"bread", "oven"}, "a loaf"); err != nil {
		t.Fatalf("MarkMediaProcessed: %v", err)
	}
	if err := store.MarkMediaFailed(ctx, b.ID, "unsupported format"); err != nil {
		t.Fatalf("MarkMediaFailed: %v", err)
	}
	backlog, err := store.ListUnprocessedMedia(ctx, 10)
	if err != nil || len(backlog) != 0 {
		t.Fatalf("ListUnprocessedMedia = %v, %v", backlog, err)
	}
	all, err := store.ListMedia(ctx, "p", 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListMedia = %v, %v", all, err)
	}
}

func TestRecentTopicsIncludesSuggestions(t *testing.T) {
	store, clock := openStore(t)
	ctx := context.Background()
	if _, err := store.CreateItem(ctx, content.NewItem{ProjectID: "p", Body: "b", Topic: "sourdough"}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := store.AddTopic(ctx, "p", "croissants", "seasonal", ""); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	topics, err := store.RecentTopics(ctx, "p", 10)
	if err != nil {
		t.Fatalf("RecentTopics: %v", err)
	}
	if len(topics) != 2 || topics[0] != "croissants" {
		t.Fatalf("RecentTopics = %v", topics)
	}
}
