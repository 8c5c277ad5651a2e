package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockFetcher implements driven.ResultFetcher with a function field.
type mockFetcher struct {
	searchFn func(ctx context.Context, query string) ([]domain.Movement, error)
}

func (m *mockFetcher) Search(ctx context.Context, query string) ([]domain.Movement, error) {
	if m.searchFn == nil {
		return nil, nil
	}
	return m.searchFn(ctx, query)
}

// gatedFetcher resolves each query only when the test releases it.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan fetchResult
}

type fetchResult struct {
	movements []domain.Movement
	err       error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan fetchResult)}
}

func (g *gatedFetcher) gate(query string) chan fetchResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[query]
	if !ok {
		ch = make(chan fetchResult, 1)
		g.gates[query] = ch
	}
	return ch
}

func (g *gatedFetcher) release(query string, movements []domain.Movement, err error) {
	g.gate(query) <- fetchResult{movements: movements, err: err}
}

func (g *gatedFetcher) Search(ctx context.Context, query string) ([]domain.Movement, error) {
	select {
	case r := <-g.gate(query):
		return r.movements, r.err
	case <-ctx.Done():
		// The coordinator cancels superseded fetches; wait for the release
		// anyway so tests control resolution order.
		r := <-g.gate(query)
		return r.movements, r.err
	}
}

// mockTransport implements driven.AnalysisTransport. Each OpenStream call
// returns the next scripted stream.
type mockTransport struct {
	mu       sync.Mutex
	requests []domain.AnalysisRequest
	openFn   func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error)
}

func (m *mockTransport) OpenStream(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.openFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, req)
}

func (m *mockTransport) Requests() []domain.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AnalysisRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// chunkBody is a response body that yields scripted chunks one Read at a
// time, then ends with err (io.EOF when nil).
type chunkBody struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	closed bool
}

func newChunkBody(err error, chunks ...string) *chunkBody {
	b := &chunkBody{err: err}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *chunkBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, errors.New("read on closed body")
	}
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// pipeBody is a body the test writes to chunk by chunk.
type pipeBody struct {
	*io.PipeReader
	w *io.PipeWriter
}

func newPipeBody() *pipeBody {
	r, w := io.Pipe()
	return &pipeBody{PipeReader: r, w: w}
}

func (p *pipeBody) send(chunk string) error {
	_, err := p.w.Write([]byte(chunk))
	return err
}

func (p *pipeBody) finish() {
	p.w.Close()
}

func (p *pipeBody) fail(err error) {
	p.w.CloseWithError(err)
}

func movements(ids ...string) []domain.Movement {
	out := make([]domain.Movement, len(ids))
	for i, id := range ids {
		out[i] = domain.Movement{ID: id, Name: "Movement " + id, Year: "2015", Description: "About " + id}
	}
	return out
}

// drain collects every event until the channel closes.
func drain(events <-chan domain.StreamEvent) []domain.StreamEvent {
	var out []domain.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// joinFragments concatenates fragment text.
func joinFragments(events []domain.StreamEvent) string {
	var s string
	for _, ev := range events {
		if ev.Kind == domain.EventFragment {
			s += ev.Text
		}
	}
	return s
}

// mockEmbeddingService implements driven.EmbeddingService.
type mockEmbeddingService struct {
	model   string
	embedFn func(text string) ([]float32, error)
	batchFn func(texts []string) ([][]float32, error)
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedFn == nil {
		return []float32{1, 0, 0}, nil
	}
	return m.embedFn(text)
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.batchFn != nil {
		return m.batchFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 3 }

func (m *mockEmbeddingService) ModelName() string {
	if m.model == "" {
		return "mock-embed"
	}
	return m.model
}

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService implements driven.LLMService.
type mockLLMService struct {
	mu       sync.Mutex
	calls    [][]driven.ChatMessage
	chatFn   func(messages []driven.ChatMessage) (string, error)
	streamFn func(messages []driven.ChatMessage, emit func(string) error) error
}

func (m *mockLLMService) record(messages []driven.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, messages)
}

func (m *mockLLMService) Calls() [][]driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]driven.ChatMessage(nil), m.calls...)
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.record(messages)
	if m.chatFn == nil {
		return "", nil
	}
	return m.chatFn(messages)
}

func (m *mockLLMService) ChatStream(
	_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions, emit func(string) error,
) error {
	m.record(messages)
	if m.streamFn == nil {
		return nil
	}
	return m.streamFn(messages, emit)
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }

func (m *mockLLMService) Ping(_ context.Context) error { return nil }

func (m *mockLLMService) Close() error { return nil }

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

func testPrompts() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptSynthesisSystem: "You are a research agent.",
		driven.PromptQueryTranslate:  "Translate to English.",
	}}
}
