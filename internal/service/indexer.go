package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	logx "github.com/dinehq/maitred/pkg/logger"
)

const (
	// Embedding calls are batched to respect upstream rate limits.
	embedBatchSize  = 10
	embedBatchDelay = 500 * time.Millisecond
)

// IndexerTableRepository is the subset of table persistence the indexer reads
type IndexerTableRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Table, error)
}

// IndexerMenuRepository is the subset of menu persistence the indexer reads
type IndexerMenuRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.MenuItem, error)
}

// KnowledgeIndexService rebuilds a tenant's knowledge chunks from live
// data and backfills embeddings for chunks that lack one.
type KnowledgeIndexService struct {
	chunkRepo KnowledgeChunkRepositoryInterface
	tableRepo IndexerTableRepository
	menuRepo  IndexerMenuRepository
	embedding EmbeddingClient
	uuidGen   UUIDGenerator
}

func NewKnowledgeIndexService(
	chunkRepo KnowledgeChunkRepositoryInterface,
	tableRepo IndexerTableRepository,
	menuRepo IndexerMenuRepository,
	embedding EmbeddingClient,
) *KnowledgeIndexService {
	return &KnowledgeIndexService{
		chunkRepo: chunkRepo,
		tableRepo: tableRepo,
		menuRepo:  menuRepo,
		embedding: embedding,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// Reindex rebuilds the menu, table and api chunks for a tenant from the
// current state of its records. Embeddings are left empty here; the
// backfill worker fills them in batches. Reindexing is an explicit
// operation, never triggered by a search.
func (s *KnowledgeIndexService) Reindex(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	now := time.Now().UTC()
	var chunks []*domain.KnowledgeChunk

	tables, err := s.tableRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	for _, t := range tables {
		chunks = append(chunks, &domain.KnowledgeChunk{
			ID:            s.uuidGen.NewString(),
			TenantID:      tenantID,
			Kind:          domain.ChunkKindTable,
			Text:          tableChunkText(t),
			RelatedFields: []string{"number", "floor", "capacity", "status"},
			LinkedAction:  string(domain.ActionGetTables),
			CreatedAt:     now,
		})
	}

	items, err := s.menuRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	for _, m := range items {
		chunks = append(chunks, &domain.KnowledgeChunk{
			ID:            s.uuidGen.NewString(),
			TenantID:      tenantID,
			Kind:          domain.ChunkKindMenu,
			Text:          menuChunkText(m),
			RelatedFields: []string{"name", "category", "base_price", "vegetarian", "available"},
			LinkedAction:  string(domain.ActionGetMenu),
			CreatedAt:     now,
		})
	}

	for _, d := range domain.Catalog() {
		chunks = append(chunks, &domain.KnowledgeChunk{
			ID:           s.uuidGen.NewString(),
			TenantID:     tenantID,
			Kind:         domain.ChunkKindAPI,
			Text:         fmt.Sprintf("%s: %s", d.Name, d.Description),
			LinkedAction: string(d.Name),
			CreatedAt:    now,
		})
	}

	for _, kind := range []domain.ChunkKind{domain.ChunkKindTable, domain.ChunkKindMenu, domain.ChunkKindAPI} {
		if err := s.chunkRepo.DeleteByTenantKind(ctx, tenantID, kind); err != nil {
			return 0, err
		}
	}

	for _, c := range chunks {
		if err := s.chunkRepo.Insert(ctx, c); err != nil {
			return 0, err
		}
	}

	logx.Info().Str("tenant_id", tenantID).Int("chunks", len(chunks)).Msg("knowledge reindexed")
	return len(chunks), nil
}

// ListChunks returns the tenant's knowledge chunks in storage order
func (s *KnowledgeIndexService) ListChunks(ctx context.Context, tenantID string) ([]*domain.KnowledgeChunk, error) {
	return s.chunkRepo.ListByTenant(ctx, tenantID)
}

// EmbedPending embeds chunks that have no vector yet, in batches with a
// small delay between batches. Called by the background worker.
func (s *KnowledgeIndexService) EmbedPending(ctx context.Context) error {
	chunks, err := s.chunkRepo.ListMissingEmbeddings(ctx, 50)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if i > 0 && i%embedBatchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(embedBatchDelay):
			}
		}

		vec, err := s.embedding.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		if err := s.chunkRepo.SetEmbedding(ctx, chunk.ID, vec); err != nil {
			return err
		}
	}

	logx.Debug().Int("embedded", len(chunks)).Msg("embedding backfill pass complete")
	return nil
}

func tableChunkText(t *domain.Table) string {
	return fmt.Sprintf("Table %s on floor %s seats %d, currently %s.",
		t.Number, t.Floor, t.Capacity, t.Status)
}

func menuChunkText(m *domain.MenuItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) costs %.2f", m.Name, m.Category, m.BasePrice)
	if m.Vegetarian {
		b.WriteString(", vegetarian")
	}
	if !m.Available {
		b.WriteString(", currently unavailable")
	}
	if len(m.Variants) > 0 {
		names := make([]string, 0, len(m.Variants))
		for _, v := range m.Variants {
			names = append(names, v.Name)
		}
		fmt.Fprintf(&b, ", variants: %s", strings.Join(names, ", "))
	}
	b.WriteString(".")
	return b.String()
}
