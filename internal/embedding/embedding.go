// Package embedding backfills vectors for published posts and flags posts
// that semantically repeat an earlier post of the same project.
//
// Vectors come from the remote embeddings client when it is configured and
// from hashed lexical fingerprints otherwise. The two kinds never compare
// (different dimensions yield zero similarity), so switching providers only
// weakens duplicate detection for older posts until they are re-embedded.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/stage"
	"github.com/viadorer/orchestrator-sub001/internal/textutil"
)

// LexicalDimensions is the size of fingerprint fallback vectors.
const LexicalDimensions = 256

// Embedder produces vectors remotely.
type Embedder interface {
	Configured() bool
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// Store is the slice of the content store the service uses.
type Store interface {
	ListUnembedded(ctx context.Context, limit int) ([]*content.Item, error)
	ListEmbedded(ctx context.Context, projectID string) ([]*content.Item, error)
	SaveEmbedding(ctx context.Context, id string, vector []float64, duplicateOf string) error
}

// BatchResult tallies one EmbedBatch call.
type BatchResult struct {
	Embedded   int `json:"embedded"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

// Service embeds content items.
type Service struct {
	remote       Embedder
	store        Store
	threshold    float64
	defaultLimit int
	logger       *slog.Logger
}

// New constructs the service. remote may be nil.
func New(remote Embedder, store Store, threshold float64, defaultLimit int, logger *slog.Logger) *Service {
	return &Service{
		remote:       remote,
		store:        store,
		threshold:    threshold,
		defaultLimit: defaultLimit,
		logger:       logging.NewComponentLogger(logger, "embedding"),
	}
}

type reference struct {
	id     string
	vector []float64
}

// EmbedBatch embeds up to limit un-embedded published items.
func (s *Service) EmbedBatch(ctx context.Context, limit int) (BatchResult, error) {
	var result BatchResult
	if limit <= 0 {
		return result, nil
	}
	items, err := s.store.ListUnembedded(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list unembedded content: %w", err)
	}
	if len(items) == 0 {
		return result, nil
	}

	vectors, err := s.vectors(ctx, items)
	if err != nil {
		return result, err
	}

	refs := make(map[string][]reference)
	for i, item := range items {
		known, ok := refs[item.ProjectID]
		if !ok {
			known, err = s.loadReferences(ctx, item.ProjectID)
			if err != nil {
				return result, err
			}
		}
		duplicateOf := ""
		best := 0.0
		for _, ref := range known {
			if score := textutil.CosineVectors(vectors[i], ref.vector); score >= s.threshold && score > best {
				best, duplicateOf = score, ref.id
			}
		}
		if err := s.store.SaveEmbedding(ctx, item.ID, vectors[i], duplicateOf); err != nil {
			result.Failed++
			logging.WarnWithContext(s.logger, "save embedding failed", "embedding_save_failed",
				logging.String("content_id", item.ID),
				logging.String(logging.FieldImpact, "item will be retried next cycle"),
				logging.Error(err),
			)
			refs[item.ProjectID] = known
			continue
		}
		result.Embedded++
		if duplicateOf != "" {
			result.Duplicates++
			s.logger.Info("semantic duplicate flagged",
				logging.Project(item.ProjectID),
				logging.String("content_id", item.ID),
				logging.String("duplicate_of", duplicateOf),
				logging.Float64("similarity", best),
			)
		}
		refs[item.ProjectID] = append(known, reference{id: item.ID, vector: vectors[i]})
	}
	return result, nil
}

func (s *Service) vectors(ctx context.Context, items []*content.Item) ([][]float64, error) {
	if s.remote != nil && s.remote.Configured() {
		inputs := make([]string, len(items))
		for i, item := range items {
			inputs[i] = item.Body
		}
		vectors, err := s.remote.Embed(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("remote embeddings: %w", err)
		}
		return vectors, nil
	}
	vectors := make([][]float64, len(items))
	for i, item := range items {
		vectors[i] = textutil.NewFingerprint(item.Body).Vector(LexicalDimensions)
	}
	return vectors, nil
}

func (s *Service) loadReferences(ctx context.Context, projectID string) ([]reference, error) {
	embedded, err := s.store.ListEmbedded(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list embedded content: %w", err)
	}
	refs := make([]reference, 0, len(embedded))
	for _, item := range embedded {
		refs = append(refs, reference{id: item.ID, vector: item.Embedding})
	}
	return refs, nil
}

// HealthCheck always reports ready; the lexical fallback needs no service.
func (s *Service) HealthCheck(context.Context) stage.Health {
	if s.remote != nil && s.remote.Configured() {
		return stage.Healthy("embedding")
	}
	return stage.Health{Name: "embedding", Ready: true, Detail: "lexical fallback"}
}
