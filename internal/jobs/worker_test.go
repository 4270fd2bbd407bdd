package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmbeddingBackfiller is a mock implementation of EmbeddingBackfiller
type MockEmbeddingBackfiller struct {
	mock.Mock
}

func (m *MockEmbeddingBackfiller) EmbedPending(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestWorker_StartAndStop(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(nil).Maybe()

	worker := NewWorker(processor, 10*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	processor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(nil).Maybe()

	worker := NewWorker(processor, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_ProcessorErrorKeepsPolling(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(errors.New("transient failure"))

	worker := NewWorker(processor, 10*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(context.Background())
	}()

	time.Sleep(55 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	assert.GreaterOrEqual(t, len(processor.Calls), 2, "worker should keep polling after errors")
}

func TestEmbeddingWorker_ProcessJobs(t *testing.T) {
	backfiller := new(MockEmbeddingBackfiller)
	backfiller.On("EmbedPending", mock.Anything).Return(nil)

	worker := NewEmbeddingWorker(backfiller)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	backfiller.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_Error(t *testing.T) {
	backfiller := new(MockEmbeddingBackfiller)
	backfiller.On("EmbedPending", mock.Anything).Return(errors.New("rate limited"))

	worker := NewEmbeddingWorker(backfiller)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backfill pass failed")
}
