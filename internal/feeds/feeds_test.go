package feeds_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viadorer/orchestrator-sub001/internal/feeds"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/testsupport"
)

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Bakery news</title>
<item><guid>a-1</guid><title>Spring menu</title><link>https://example.com/spring</link><description>New   pastries</description><pubDate>Mon, 06 May 2024 08:00:00 GMT</pubDate></item>
<item><title>No guid here</title><link>https://example.com/no-guid</link></item>
</channel></rss>`

func TestFetchAllCountsAndDeduplicates(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer bad.Close()

	cfg := testsupport.NewConfig(t)
	store := feeds.NewStore(testsupport.MustOpenDatabase(t, cfg))
	ctx := context.Background()
	if _, err := store.AddSource(ctx, "p", "news", good.URL); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	broken, err := store.AddSource(ctx, "p", "broken", bad.URL)
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	fetcher := feeds.NewFetcher(cfg, store, logging.NewNop())
	result, err := fetcher.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if result.SourcesChecked != 2 || result.Added != 2 || result.Errors != 1 {
		t.Fatalf("unexpected first result: %#v", result)
	}

	again, err := fetcher.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll again: %v", err)
	}
	if again.Added != 0 {
		t.Fatalf("expected items to be deduplicated, got %#v", again)
	}

	items, err := store.ListItems(ctx, "p", 10)
	if err != nil || len(items) != 2 {
		t.Fatalf("ListItems = %v, %v", items, err)
	}
	sources, err := store.ListSources(ctx, "p", false)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	for _, src := range sources {
		if src.LastFetchedAt.IsZero() {
			t.Fatalf("source %s missing fetch timestamp", src.ID)
		}
		if src.ID == broken.ID && src.LastError == "" {
			t.Fatal("expected broken source to record its error")
		}
	}
}

func TestAddSourceValidatesURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := feeds.NewStore(testsupport.MustOpenDatabase(t, cfg))
	for _, raw := range []string{"", "ftp://example.com/feed", "not a url", "/relative"} {
		if _, err := store.AddSource(context.Background(), "p", "", raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
