package domain

import (
	"fmt"
	"time"
)

// ChunkKind represents the kind of knowledge chunk
type ChunkKind string

const (
	ChunkKindSchema        ChunkKind = "schema"
	ChunkKindMenu          ChunkKind = "menu"
	ChunkKindTable         ChunkKind = "table"
	ChunkKindAPI           ChunkKind = "api"
	ChunkKindIntentExample ChunkKind = "intent-example"
	ChunkKindDocument      ChunkKind = "document"
)

// KnowledgeChunk is one retrievable unit of tenant knowledge. TenantID is
// immutable after creation; a chunk is never returned across tenants.
type KnowledgeChunk struct {
	ID            string
	TenantID      string
	Kind          ChunkKind
	Text          string
	RelatedFields []string
	LinkedAction  string // action name this chunk documents, if any
	Embedding     []float32
	CreatedAt     time.Time
}

// ScoredChunk pairs a chunk with its similarity score for retrieval results
type ScoredChunk struct {
	Chunk *KnowledgeChunk
	Score float64
}

// ValidateKnowledgeChunk validates a KnowledgeChunk instance
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("knowledge chunk ID is required")
	}

	if c.TenantID == "" {
		return fmt.Errorf("knowledge chunk TenantID is required")
	}

	if c.Text == "" {
		return fmt.Errorf("knowledge chunk Text is required")
	}

	if !isValidChunkKind(c.Kind) {
		return ErrInvalidChunkKind
	}

	return nil
}

// isValidChunkKind checks if a ChunkKind is valid
func isValidChunkKind(k ChunkKind) bool {
	switch k {
	case ChunkKindSchema, ChunkKindMenu, ChunkKindTable,
		ChunkKindAPI, ChunkKindIntentExample, ChunkKindDocument:
		return true
	}
	return false
}
