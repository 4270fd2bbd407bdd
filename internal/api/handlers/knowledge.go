package handlers

import (
	"context"
	"net/http"

	"github.com/dinehq/maitred/internal/api"
	"github.com/dinehq/maitred/internal/api/middleware"
	"github.com/dinehq/maitred/internal/domain"
)

type KnowledgeService interface {
	Reindex(ctx context.Context, tenantID string) (int, error)
	ListChunks(ctx context.Context, tenantID string) ([]*domain.KnowledgeChunk, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type ChunkResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Text         string `json:"text"`
	LinkedAction string `json:"linked_action,omitempty"`
	HasEmbedding bool   `json:"has_embedding"`
	CreatedAt    string `json:"created_at"`
}

// Reindex rebuilds the tenant's knowledge chunks from live records.
// Embeddings are backfilled asynchronously by the worker.
func (h *KnowledgeHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.svc.Reindex(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]int{"chunks": count})
}

// ListChunks returns the tenant's knowledge chunks
func (h *KnowledgeHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	chunks, err := h.svc.ListChunks(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, ChunkResponse{
			ID:           c.ID,
			Kind:         string(c.Kind),
			Text:         c.Text,
			LinkedAction: c.LinkedAction,
			HasEmbedding: len(c.Embedding) > 0,
			CreatedAt:    c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, out)
}
