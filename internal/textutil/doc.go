// Package textutil provides text helpers for topic deduplication and display.
//
// Fingerprints are term-frequency vectors built from diacritic-folded,
// lowercased tokens of at least three characters. They back topic
// deduplication and the lexical embedding fallback used when no remote
// embeddings endpoint is configured.
package textutil
