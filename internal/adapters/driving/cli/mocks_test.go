package cli

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// executeCommand runs the root command with args against s and returns
// everything written to stdout and stderr.
func executeCommand(t *testing.T, s *Services, args ...string) (string, error) {
	t.Helper()

	SetServices(s)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		SetServices(nil)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		searchJSON = false
		searchSuggest = false
		askFollowUps = nil
		askTimeout = 3 * time.Minute
		serveAddr = ""
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// mockLens implements driving.LensService with a fixed transcript.
type mockLens struct {
	outcome    domain.SearchOutcome
	transcript []domain.Message
	askErr     error

	submitted []string
	asked     []string
	closed    bool
}

func (m *mockLens) Submit(_ context.Context, query string) domain.SearchOutcome {
	m.submitted = append(m.submitted, query)
	out := m.outcome
	out.Query = query
	return out
}

func (m *mockLens) Ask(question string) (domain.MessageHandle, error) {
	m.asked = append(m.asked, question)
	return domain.MessageHandle("a2"), m.askErr
}

func (m *mockLens) Await(context.Context, domain.MessageHandle) (domain.Message, error) {
	return domain.Message{}, nil
}

func (m *mockLens) AwaitSynthesis(context.Context) (domain.Message, error) {
	return domain.Message{}, nil
}

func (m *mockLens) Transcript() []domain.Message { return m.transcript }

func (m *mockLens) Results() domain.ResultSet { return m.outcome.Results }

func (m *mockLens) Query() string { return "" }

func (m *mockLens) Searching() bool { return false }

func (m *mockLens) Subscribe() (<-chan struct{}, func()) {
	return make(chan struct{}), func() {}
}

func (m *mockLens) Close() error {
	m.closed = true
	return nil
}

func lensServices(lens *mockLens) *Services {
	return &Services{
		NewLens: func(domain.ClientSettings) (driving.LensService, error) {
			return lens, nil
		},
	}
}

// mockDataset implements driving.DatasetService.
type mockDataset struct {
	imported string
	count    int
	err      error
}

func (m *mockDataset) Search(context.Context, string) ([]domain.Movement, error) {
	return nil, m.err
}

func (m *mockDataset) Get(context.Context, string) (*domain.Movement, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDataset) Import(_ context.Context, r io.Reader) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.imported = string(data)
	return 2, nil
}

func (m *mockDataset) Count(context.Context) (int, error) {
	return m.count, nil
}

func (m *mockDataset) FullContext(context.Context) (string, error) {
	return "", m.err
}

func backendServices(dataset *mockDataset, closed *bool) *Services {
	return &Services{
		OpenBackend: func(context.Context) (*Backend, error) {
			return &Backend{
				Dataset: dataset,
				Close: func() error {
					*closed = true
					return nil
				},
			}, nil
		},
	}
}

// mockSettings implements driving.SettingsService.
type mockSettings struct {
	settings    domain.AppSettings
	validateErr error
	llmErr      error
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) SetEmbeddingProvider(domain.AIProvider, string, string) error { return nil }

func (m *mockSettings) SetLLMProvider(domain.AIProvider, string, string) error { return nil }

func (m *mockSettings) Validate() error { return m.validateErr }

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) ValidateEmbeddingConfig() error { return nil }

func (m *mockSettings) ValidateLLMConfig() error { return m.llmErr }

// mockConfigStore implements driven.ConfigStore over a map.
type mockConfigStore struct {
	values map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: map[string]any{}}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	i, _ := m.values[key].(int64)
	return int(i)
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	f, _ := m.values[key].(float64)
	return f
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) Path() string { return "/home/test/.lens/config.toml" }
