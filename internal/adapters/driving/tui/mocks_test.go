package tui

import (
	"context"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// MockLensService implements driving.LensService for testing.
type MockLensService struct {
	SubmitFunc func(ctx context.Context, query string) domain.SearchOutcome
	transcript []domain.Message

	changes      chan struct{}
	unsubscribed bool
}

func newMockLens() *MockLensService {
	return &MockLensService{changes: make(chan struct{}, 1)}
}

func (m *MockLensService) Submit(ctx context.Context, query string) domain.SearchOutcome {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, query)
	}
	return domain.SearchOutcome{Generation: 1, Query: query}
}

func (m *MockLensService) Ask(string) (domain.MessageHandle, error) {
	return "a2", nil
}

func (m *MockLensService) Await(context.Context, domain.MessageHandle) (domain.Message, error) {
	return domain.Message{}, nil
}

func (m *MockLensService) AwaitSynthesis(context.Context) (domain.Message, error) {
	return domain.Message{}, nil
}

func (m *MockLensService) Transcript() []domain.Message { return m.transcript }

func (m *MockLensService) Results() domain.ResultSet { return nil }

func (m *MockLensService) Query() string { return "" }

func (m *MockLensService) Searching() bool { return false }

func (m *MockLensService) Subscribe() (<-chan struct{}, func()) {
	return m.changes, func() { m.unsubscribed = true }
}

func (m *MockLensService) Close() error { return nil }

// MockResultActionService implements driving.ResultActionService for testing.
type MockResultActionService struct{}

func (m *MockResultActionService) CopyToClipboard(string) error { return nil }

func (m *MockResultActionService) OpenReference(*domain.Movement) error { return nil }
