// Package content stores generated posts, media assets and topic suggestions.
//
// Content items move review -> approved -> published (or publish_failed);
// rejected items are kept for audit. Engagement snapshots and embeddings are
// stored on the item so the publishing and embedding collaborators can work
// in bounded batches.
package content
