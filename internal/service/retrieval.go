package service

import (
	"context"
	"math"
	"sort"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/telemetry"
	logx "github.com/dinehq/maitred/pkg/logger"
)

const (
	defaultRetrievalLimit    = 5
	defaultRetrievalMinScore = 0.7
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeChunkRepositoryInterface defines the repository interface for
// knowledge chunk persistence
type KnowledgeChunkRepositoryInterface interface {
	Insert(ctx context.Context, c *domain.KnowledgeChunk) error
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeChunk, error)
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error)
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	DeleteByTenantKind(ctx context.Context, tenantID string, kind domain.ChunkKind) error
	Delete(ctx context.Context, tenantID, id string) error
}

// RetrievalConfig holds search defaults
type RetrievalConfig struct {
	Limit    int
	MinScore float64
}

// RetrievalService grounds queries in tenant knowledge. The caller must
// have already proven the acting user belongs to the tenant; this service
// additionally refuses to return any chunk whose tenant does not match.
type RetrievalService struct {
	repo      KnowledgeChunkRepositoryInterface
	embedding EmbeddingClient
	cfg       RetrievalConfig
}

func NewRetrievalService(repo KnowledgeChunkRepositoryInterface, embedding EmbeddingClient, cfg RetrievalConfig) *RetrievalService {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRetrievalLimit
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultRetrievalMinScore
	}
	return &RetrievalService{repo: repo, embedding: embedding, cfg: cfg}
}

// Search embeds the query, scores every chunk of the tenant by cosine
// similarity, keeps those at or above the floor, and returns the top
// results in descending score order. Equal scores preserve storage order.
func (s *RetrievalService) Search(ctx context.Context, tenantID, query string) ([]domain.ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		TenantID: tenantID,
	})
	defer span.End()

	queryVec, err := s.embedQueryWithRetry(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamUnavailable, "embedding call failed", err)
	}

	chunks, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.TenantID != tenantID {
			// A mismatch here means the storage layer returned data it
			// was told to filter. Drop the chunk, never return it.
			logx.Error().
				Str("tenant_id", tenantID).
				Str("chunk_id", chunk.ID).
				Str("chunk_tenant_id", chunk.TenantID).
				Msg("cross-tenant chunk dropped from retrieval results")
			continue
		}
		if len(chunk.Embedding) == 0 {
			continue
		}
		score := CosineSimilarity(queryVec, chunk.Embedding)
		if score < s.cfg.MinScore {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: chunk, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > s.cfg.Limit {
		scored = scored[:s.cfg.Limit]
	}
	return scored, nil
}

// embedQueryWithRetry retries the embedding call once. Embedding is
// read-only, so a retry can never duplicate an effect.
func (s *RetrievalService) embedQueryWithRetry(ctx context.Context, query string) ([]float32, error) {
	vec, err := s.embedding.GenerateEmbedding(ctx, query)
	if err == nil {
		return vec, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return s.embedding.GenerateEmbedding(ctx, query)
}

// CosineSimilarity scores two vectors in [-1, 1]. Mismatched lengths or
// zero vectors score 0.
func CosineSimilarity(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
