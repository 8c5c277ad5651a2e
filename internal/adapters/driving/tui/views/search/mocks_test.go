package search

import (
	"context"
	"sync"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// MockLensService implements driving.LensService for testing.
type MockLensService struct {
	SubmitFunc     func(ctx context.Context, query string) domain.SearchOutcome
	AskFunc        func(question string) (domain.MessageHandle, error)
	TranscriptFunc func() []domain.Message
	SearchingFunc  func() bool

	mu           sync.Mutex
	submitted    []string
	asked        []string
	changes      chan struct{}
	unsubscribed bool
}

func newMockLens() *MockLensService {
	return &MockLensService{changes: make(chan struct{}, 1)}
}

func (m *MockLensService) Submit(ctx context.Context, query string) domain.SearchOutcome {
	m.mu.Lock()
	m.submitted = append(m.submitted, query)
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, query)
	}
	return domain.SearchOutcome{Query: query}
}

func (m *MockLensService) Ask(question string) (domain.MessageHandle, error) {
	m.mu.Lock()
	m.asked = append(m.asked, question)
	m.mu.Unlock()
	if m.AskFunc != nil {
		return m.AskFunc(question)
	}
	return "a2", nil
}

func (m *MockLensService) Await(context.Context, domain.MessageHandle) (domain.Message, error) {
	return domain.Message{}, nil
}

func (m *MockLensService) AwaitSynthesis(context.Context) (domain.Message, error) {
	return domain.Message{}, nil
}

func (m *MockLensService) Transcript() []domain.Message {
	if m.TranscriptFunc != nil {
		return m.TranscriptFunc()
	}
	return nil
}

func (m *MockLensService) Results() domain.ResultSet { return nil }

func (m *MockLensService) Query() string { return "" }

func (m *MockLensService) Searching() bool {
	if m.SearchingFunc != nil {
		return m.SearchingFunc()
	}
	return false
}

func (m *MockLensService) Subscribe() (<-chan struct{}, func()) {
	return m.changes, func() { m.unsubscribed = true }
}

func (m *MockLensService) Close() error { return nil }

func (m *MockLensService) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}

func (m *MockLensService) Asked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.asked...)
}

// MockResultActionService implements driving.ResultActionService for testing.
type MockResultActionService struct {
	CopyToClipboardFunc func(text string) error
	OpenReferenceFunc   func(movement *domain.Movement) error

	copied []string
	opened []string
}

func (m *MockResultActionService) CopyToClipboard(text string) error {
	m.copied = append(m.copied, text)
	if m.CopyToClipboardFunc != nil {
		return m.CopyToClipboardFunc(text)
	}
	return nil
}

func (m *MockResultActionService) OpenReference(movement *domain.Movement) error {
	m.opened = append(m.opened, movement.ID)
	if m.OpenReferenceFunc != nil {
		return m.OpenReferenceFunc(movement)
	}
	return nil
}

// Helper function to create test movements.
func testMovements() domain.ResultSet {
	return domain.ResultSet{
		{ID: "1", Name: "Indignados", Year: "2011", Region: "Europe"},
		{ID: "2", Name: "Umbrella Movement", Year: "2014", Region: "Asia"},
	}
}
