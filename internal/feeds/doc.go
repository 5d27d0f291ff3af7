// Package feeds stores RSS/Atom sources and implements the feed fetcher
// collaborator.
//
// FetchAll is best effort: each active source is fetched independently,
// failures are counted and recorded on the source row, and new items are
// deduplicated by (source_id, guid).
package feeds
