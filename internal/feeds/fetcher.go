package feeds

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/textutil"
)

const summaryLimit = 500

// FetchResult summarizes one FetchAll pass.
type FetchResult struct {
	SourcesChecked int `json:"sources_checked"`
	Added          int `json:"added"`
	Errors         int `json:"errors"`
}

// Fetcher refreshes every active source.
type Fetcher struct {
	store    *Store
	parser   *gofeed.Parser
	maxItems int
	logger   *slog.Logger
}

// NewFetcher builds a fetcher from the [feeds] configuration.
func NewFetcher(cfg *config.Config, store *Store, logger *slog.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = cfg.Feeds.UserAgent
	parser.Client = &http.Client{Timeout: time.Duration(cfg.Feeds.RequestTimeout) * time.Second}
	return &Fetcher{
		store:    store,
		parser:   parser,
		maxItems: cfg.Feeds.MaxItemsPerSource,
		logger:   logging.NewComponentLogger(logger, "feeds"),
	}
}

// FetchAll fetches every active source. Per-source failures are counted and
// recorded on the source; only a failure to list sources is returned.
func (f *Fetcher) FetchAll(ctx context.Context) (FetchResult, error) {
	var result FetchResult
	sources, err := f.store.ListSources(ctx, "", true)
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "feeds", "list sources", "Unable to load feed sources", err)
	}
	for _, src := range sources {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.SourcesChecked++
		added, fetchErr := f.fetchSource(ctx, src)
		result.Added += added
		if fetchErr != nil {
			result.Errors++
			logging.WarnWithContext(f.logger, "feed fetch failed", "feed_fetch_failed",
				logging.Project(src.ProjectID),
				logging.String("source_id", src.ID),
				logging.String("url", src.URL),
				logging.Error(fetchErr),
				logging.String(logging.FieldErrorHint, "verify the feed URL is reachable and returns RSS or Atom"),
				logging.String(logging.FieldImpact, "no new items from this source this cycle"),
			)
		}
		if err := f.store.RecordFetch(ctx, src.ID, fetchErr); err != nil {
			f.logger.Warn("record feed fetch failed", logging.Args(logging.String("source_id", src.ID), logging.Error(err))...)
		}
	}
	f.logger.Info("feeds refreshed",
		logging.Int("sources", result.SourcesChecked),
		logging.Int("added", result.Added),
		logging.Int("errors", result.Errors),
	)
	return result, nil
}

func (f *Fetcher) fetchSource(ctx context.Context, src *Source) (int, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	added := 0
	for i, entry := range feed.Items {
		if f.maxItems > 0 && i >= f.maxItems {
			break
		}
		item := Item{
			SourceID:  src.ID,
			ProjectID: src.ProjectID,
			GUID:      entryGUID(entry),
			Title:     textutil.CollapseWhitespace(entry.Title),
			Link:      strings.TrimSpace(entry.Link),
			Summary:   textutil.Truncate(textutil.CollapseWhitespace(entry.Description), summaryLimit),
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = entry.UpdatedParsed.UTC()
		}
		isNew, err := f.store.InsertItem(ctx, item)
		if err != nil {
			return added, err
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

// entryGUID prefers the feed-supplied GUID, then the link, then a hash of
// the title.
func entryGUID(entry *gofeed.Item) string {
	if guid := strings.TrimSpace(entry.GUID); guid != "" {
		return guid
	}
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	sum := sha1.Sum([]byte(strings.TrimSpace(entry.Title)))
	return "title:" + hex.EncodeToString(sum[:])
}
