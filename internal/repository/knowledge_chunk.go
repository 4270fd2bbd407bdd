package repository

import (
	"context"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// KnowledgeChunkRepository handles persistence of tenant knowledge chunks.
type KnowledgeChunkRepository struct {
	db dbtx
}

func NewKnowledgeChunkRepository(pool *pgxpool.Pool) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: pool}
}

func NewKnowledgeChunkRepositoryWithTx(tx pgx.Tx) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: tx}
}

func (r *KnowledgeChunkRepository) Insert(ctx context.Context, c *domain.KnowledgeChunk) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var embedding any
	if len(c.Embedding) > 0 {
		embedding = pgvector.NewVector(c.Embedding)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_chunks
			(id, tenant_id, kind, text, related_fields, linked_action, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.Kind, c.Text, c.RelatedFields,
		nullableString(c.LinkedAction), embedding, createdAt,
	)
	return err
}

// ListByTenant returns all chunks for a tenant in storage order. The
// tenant filter is a hard predicate, never a rank signal.
func (r *KnowledgeChunkRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, kind, text, related_fields, linked_action, embedding, created_at
		 FROM knowledge_chunks
		 WHERE tenant_id = $1
		 ORDER BY created_at, id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.KnowledgeChunk
	for rows.Next() {
		var c domain.KnowledgeChunk
		var linkedAction *string
		var embedding *pgvector.Vector
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Kind, &c.Text, &c.RelatedFields,
			&linkedAction, &embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		if linkedAction != nil {
			c.LinkedAction = *linkedAction
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// ListMissingEmbeddings returns chunks awaiting an embedding, oldest first.
func (r *KnowledgeChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, kind, text, related_fields, linked_action, created_at
		 FROM knowledge_chunks
		 WHERE embedding IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.KnowledgeChunk
	for rows.Next() {
		var c domain.KnowledgeChunk
		var linkedAction *string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Kind, &c.Text, &c.RelatedFields,
			&linkedAction, &c.CreatedAt); err != nil {
			return nil, err
		}
		if linkedAction != nil {
			c.LinkedAction = *linkedAction
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *KnowledgeChunkRepository) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	return err
}

// DeleteByTenantKind removes all chunks of one kind for a tenant,
// used before a reindex rebuilds them from live data.
func (r *KnowledgeChunkRepository) DeleteByTenantKind(ctx context.Context, tenantID string, kind domain.ChunkKind) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE tenant_id = $1 AND kind = $2`,
		tenantID, kind,
	)
	return err
}

func (r *KnowledgeChunkRepository) Delete(ctx context.Context, tenantID, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	return err
}
