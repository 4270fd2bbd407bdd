package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReindex(t *testing.T) {
	chunkRepo := new(MockKnowledgeChunkRepository)
	tableRepo := new(MockTableRepository)
	menuRepo := new(MockMenuRepository)

	tableRepo.On("ListByTenant", mock.Anything, "t1").Return([]*domain.Table{
		{Number: "3", Floor: "main", Capacity: 4, Status: domain.TableStatusAvailable},
	}, nil)
	menuRepo.On("ListByTenant", mock.Anything, "t1").Return([]*domain.MenuItem{
		{Name: "Tiramisu", Category: "dessert", BasePrice: 7.00, Vegetarian: true, Available: true},
	}, nil)

	for _, kind := range []domain.ChunkKind{domain.ChunkKindTable, domain.ChunkKindMenu, domain.ChunkKindAPI} {
		chunkRepo.On("DeleteByTenantKind", mock.Anything, "t1", kind).Return(nil)
	}

	var inserted []*domain.KnowledgeChunk
	chunkRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.KnowledgeChunk")).
		Run(func(args mock.Arguments) {
			inserted = append(inserted, args.Get(1).(*domain.KnowledgeChunk))
		}).
		Return(nil)

	svc := NewKnowledgeIndexService(chunkRepo, tableRepo, menuRepo, nil)
	count, err := svc.Reindex(context.Background(), "t1")
	require.NoError(t, err)

	// One table chunk, one menu chunk, one per catalog action.
	expected := 1 + 1 + len(domain.Catalog())
	assert.Equal(t, expected, count)
	require.Len(t, inserted, expected)

	byKind := map[domain.ChunkKind]int{}
	for _, c := range inserted {
		byKind[c.Kind]++
		assert.Equal(t, "t1", c.TenantID)
		assert.Empty(t, c.Embedding)
		assert.NotEmpty(t, c.Text)
	}
	assert.Equal(t, 1, byKind[domain.ChunkKindTable])
	assert.Equal(t, 1, byKind[domain.ChunkKindMenu])
	assert.Equal(t, len(domain.Catalog()), byKind[domain.ChunkKindAPI])

	chunkRepo.AssertExpectations(t)
}

func TestReindex_ChunkTexts(t *testing.T) {
	chunkRepo := new(MockKnowledgeChunkRepository)
	tableRepo := new(MockTableRepository)
	menuRepo := new(MockMenuRepository)

	tableRepo.On("ListByTenant", mock.Anything, "t1").Return([]*domain.Table{
		{Number: "3", Floor: "terrace", Capacity: 6, Status: domain.TableStatusReserved},
	}, nil)
	menuRepo.On("ListByTenant", mock.Anything, "t1").Return([]*domain.MenuItem{
		{Name: "Margherita Pizza", Category: "pizza", BasePrice: 12.50, Vegetarian: true, Available: false,
			Variants: []domain.Variant{{Name: "large", PriceDelta: 4.00}}},
	}, nil)
	chunkRepo.On("DeleteByTenantKind", mock.Anything, "t1", mock.Anything).Return(nil)

	var texts []string
	chunkRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.KnowledgeChunk")).
		Run(func(args mock.Arguments) {
			texts = append(texts, args.Get(1).(*domain.KnowledgeChunk).Text)
		}).
		Return(nil)

	svc := NewKnowledgeIndexService(chunkRepo, tableRepo, menuRepo, nil)
	_, err := svc.Reindex(context.Background(), "t1")
	require.NoError(t, err)

	assert.Contains(t, texts, "Table 3 on floor terrace seats 6, currently reserved.")
	assert.Contains(t, texts, "Margherita Pizza (pizza) costs 12.50, vegetarian, currently unavailable, variants: large.")
}

func TestReindex_EmptyTenantID(t *testing.T) {
	svc := NewKnowledgeIndexService(new(MockKnowledgeChunkRepository), new(MockTableRepository), new(MockMenuRepository), nil)

	_, err := svc.Reindex(context.Background(), "")
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestEmbedPending(t *testing.T) {
	chunkRepo := new(MockKnowledgeChunkRepository)
	embedding := new(MockEmbeddingClient)

	chunkRepo.On("ListMissingEmbeddings", mock.Anything, 50).Return([]*domain.KnowledgeChunk{
		{ID: "c1", Text: "chunk one"},
		{ID: "c2", Text: "chunk two"},
	}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, "chunk one").Return([]float32{0.1}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, "chunk two").Return([]float32{0.2}, nil)
	chunkRepo.On("SetEmbedding", mock.Anything, "c1", []float32{0.1}).Return(nil)
	chunkRepo.On("SetEmbedding", mock.Anything, "c2", []float32{0.2}).Return(nil)

	svc := NewKnowledgeIndexService(chunkRepo, new(MockTableRepository), new(MockMenuRepository), embedding)
	require.NoError(t, svc.EmbedPending(context.Background()))
	chunkRepo.AssertExpectations(t)
}

func TestEmbedPending_NothingToDo(t *testing.T) {
	chunkRepo := new(MockKnowledgeChunkRepository)
	embedding := new(MockEmbeddingClient)

	chunkRepo.On("ListMissingEmbeddings", mock.Anything, 50).Return([]*domain.KnowledgeChunk{}, nil)

	svc := NewKnowledgeIndexService(chunkRepo, new(MockTableRepository), new(MockMenuRepository), embedding)
	require.NoError(t, svc.EmbedPending(context.Background()))
	embedding.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestEmbedPending_EmbeddingFailureStops(t *testing.T) {
	chunkRepo := new(MockKnowledgeChunkRepository)
	embedding := new(MockEmbeddingClient)

	chunkRepo.On("ListMissingEmbeddings", mock.Anything, 50).Return([]*domain.KnowledgeChunk{
		{ID: "c1", Text: "chunk one"},
		{ID: "c2", Text: "chunk two"},
	}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, "chunk one").Return(nil, errors.New("rate limited"))

	svc := NewKnowledgeIndexService(chunkRepo, new(MockTableRepository), new(MockMenuRepository), embedding)
	err := svc.EmbedPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")
	chunkRepo.AssertNotCalled(t, "SetEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func TestListChunks(t *testing.T) {
	chunkRepo := new(MockKnowledgeChunkRepository)
	chunkRepo.On("ListByTenant", mock.Anything, "t1").Return([]*domain.KnowledgeChunk{
		{ID: "c1", TenantID: "t1"},
	}, nil)

	svc := NewKnowledgeIndexService(chunkRepo, new(MockTableRepository), new(MockMenuRepository), nil)
	chunks, err := svc.ListChunks(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}
