package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// mockDatasetService is a mock implementation of driving.DatasetService.
type mockDatasetService struct {
	movements   []domain.Movement
	movement    *domain.Movement
	fullContext string
	err         error
	lastQuery   string
}

func (m *mockDatasetService) Search(_ context.Context, query string) ([]domain.Movement, error) {
	m.lastQuery = query
	return m.movements, m.err
}

func (m *mockDatasetService) Get(_ context.Context, _ string) (*domain.Movement, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.movement == nil {
		return nil, domain.ErrNotFound
	}
	return m.movement, nil
}

func (m *mockDatasetService) Import(_ context.Context, _ io.Reader) (int, error) {
	return 0, m.err
}

func (m *mockDatasetService) Count(_ context.Context) (int, error) {
	return len(m.movements), m.err
}

func (m *mockDatasetService) FullContext(_ context.Context) (string, error) {
	return m.fullContext, m.err
}

// mockSynthesisService is a mock implementation of driving.SynthesisService.
type mockSynthesisService struct {
	answer      string
	err         error
	unavailable bool
	lastRequest domain.AnalysisRequest
}

func (m *mockSynthesisService) Stream(
	_ context.Context, req domain.AnalysisRequest, emit func(string) error,
) error {
	m.lastRequest = req
	if m.err != nil {
		return m.err
	}
	return emit(m.answer)
}

func (m *mockSynthesisService) Answer(_ context.Context, req domain.AnalysisRequest) (string, error) {
	m.lastRequest = req
	return m.answer, m.err
}

func (m *mockSynthesisService) Available() bool {
	return !m.unavailable
}
