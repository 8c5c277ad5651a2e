package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/movement-lens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
)

const sampleDataset = `[
  {"id": 1.0, "name": "Occupy Wall Street", "hashtag": "#OWS", "year": 2011, "region": "North America",
   "description": "Protest against economic inequality", "tags": ["Political"], "tweets_count": "12,400",
   "outcome": "Dispersed", "star_rating": 4.0},
  {"id": "2.0", "name": "Fridays for Future", "hashtag": "#FridaysForFuture", "year": "2018", "region": "Europe",
   "description": "School strikes for climate", "tags": ["Environmental"], "tweets": 90000},
  {"id": 3, "name": "Indignados | 15-M", "year": 2011, "region": "Europe",
   "description": "Anti-austerity\nprotests in Spain", "tags": ["Political", "Social"], "tweets_count": "n/a"}
]`

func newTestDataset(t *testing.T) *DatasetService {
	t.Helper()
	store := memory.NewMovementStore()
	svc := NewDatasetService(store, nil, nil, nil, domain.ServerSettings{})
	n, err := svc.Import(context.Background(), strings.NewReader(sampleDataset))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return svc
}

func TestDatasetService_Import(t *testing.T) {
	svc := newTestDataset(t)
	ctx := context.Background()

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	ows, err := svc.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "2011", ows.Year)
	assert.Equal(t, int64(12400), ows.Tweets)
	assert.Equal(t, 4, ows.StarRating)

	fff, err := svc.Get(ctx, "2.0")
	require.NoError(t, err)
	assert.Equal(t, int64(90000), fff.Tweets)
	assert.Equal(t, "90000", fff.TweetsCount)

	ind, err := svc.Get(ctx, "3")
	require.NoError(t, err)
	assert.Zero(t, ind.Tweets)
}

func TestDatasetService_Import_Invalid(t *testing.T) {
	svc := NewDatasetService(memory.NewMovementStore(), nil, nil, nil, domain.ServerSettings{})

	tests := []struct {
		name  string
		input string
	}{
		{"not json", "movements"},
		{"not an array", `{"id": 1}`},
		{"missing id", `[{"name": "nameless"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), strings.NewReader(tt.input))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestDatasetService_Get_NotFound(t *testing.T) {
	svc := newTestDataset(t)

	_, err := svc.Get(context.Background(), "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDatasetService_Search_EmptyQueryReturnsTop(t *testing.T) {
	svc := newTestDataset(t)

	results, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "1", "3"}, domain.ResultSet(results).IDs())
}

func TestDatasetService_Search_TopLimit(t *testing.T) {
	store := memory.NewMovementStore()
	svc := NewDatasetService(store, nil, nil, nil, domain.ServerSettings{TopLimit: 1})
	_, err := svc.Import(context.Background(), strings.NewReader(sampleDataset))
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDatasetService_Search_Keyword(t *testing.T) {
	svc := newTestDataset(t)

	results, err := svc.Search(context.Background(), "europe")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, domain.ResultSet(results).IDs())

	none, err := svc.Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDatasetService_Search_Semantic(t *testing.T) {
	store := memory.NewMovementStore()
	embedder := &mockEmbeddingService{
		batchFn: func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				switch {
				case strings.Contains(text, "climate"):
					out[i] = []float32{1, 0, 0}
				case strings.Contains(text, "inequality"):
					out[i] = []float32{0.8, 0.6, 0}
				default:
					out[i] = []float32{0, 0, 1}
				}
			}
			return out, nil
		},
		embedFn: func(text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	}
	svc := NewDatasetService(store, embedder, nil, nil, domain.ServerSettings{})
	_, err := svc.Import(context.Background(), strings.NewReader(sampleDataset))
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "global warming")
	require.NoError(t, err)

	require.Equal(t, []string{"2", "1"}, domain.ResultSet(results).IDs(), "orthogonal vectors fall below the threshold")
	require.NotNil(t, results[0].Similarity)
	assert.InDelta(t, 100.0, *results[0].Similarity, 1e-9)
	assert.InDelta(t, 80.0, *results[1].Similarity, 1e-9)
}

func TestDatasetService_Search_TranslatesNonASCII(t *testing.T) {
	store := memory.NewMovementStore()
	var embedded []string
	embedder := &mockEmbeddingService{
		embedFn: func(text string) ([]float32, error) {
			embedded = append(embedded, text)
			return []float32{1, 0, 0}, nil
		},
	}
	llm := &mockLLMService{
		chatFn: func(messages []driven.ChatMessage) (string, error) {
			return "  racial justice \n", nil
		},
	}
	svc := NewDatasetService(store, embedder, llm, testPrompts(), domain.ServerSettings{})
	_, err := svc.Import(context.Background(), strings.NewReader(sampleDataset))
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), "种族相关的")
	require.NoError(t, err)

	assert.Equal(t, []string{"racial justice"}, embedded)
	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Translate to English.", calls[0][0].Content)
	assert.Equal(t, "种族相关的", calls[0][1].Content)
}

func TestDatasetService_Search_ASCIIIsNotTranslated(t *testing.T) {
	store := memory.NewMovementStore()
	llm := &mockLLMService{}
	svc := NewDatasetService(store, &mockEmbeddingService{}, llm, testPrompts(), domain.ServerSettings{})
	_, err := svc.Import(context.Background(), strings.NewReader(sampleDataset))
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), "climate")
	require.NoError(t, err)

	assert.Empty(t, llm.Calls())
}

func TestDatasetService_Search_SemanticFallsBackToKeyword(t *testing.T) {
	tests := []struct {
		name     string
		embedder *mockEmbeddingService
	}{
		{
			name: "query embedding fails",
			embedder: &mockEmbeddingService{
				embedFn: func(string) ([]float32, error) { return nil, errors.New("provider down") },
			},
		},
		{
			name: "nothing embedded with this model",
			embedder: &mockEmbeddingService{
				model:   "other-model",
				batchFn: func([]string) ([][]float32, error) { return nil, errors.New("batch failed") },
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewMovementStore()
			svc := NewDatasetService(store, tt.embedder, nil, nil, domain.ServerSettings{})
			_, err := svc.Import(context.Background(), strings.NewReader(sampleDataset))
			require.NoError(t, err, "embedding failures do not fail the import")

			results, err := svc.Search(context.Background(), "europe")
			require.NoError(t, err)

			assert.Equal(t, []string{"2", "3"}, domain.ResultSet(results).IDs())
			assert.Nil(t, results[0].Similarity)
		})
	}
}

func TestDatasetService_FullContext(t *testing.T) {
	svc := newTestDataset(t)

	out, err := svc.FullContext(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "--- FULL DATABASE START ---", lines[0])
	assert.Equal(t, "ID|Name|Year|Region|Category|Tweets|Duration|Reoccurrence|Impact|Offline|Participants|Outcome|Description", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2|Fridays for Future|2018|"), lines[2])
	assert.Equal(t, "3|Indignados / 15-M|2011|Europe|Political,Social|0|||||||Anti-austerity protests in Spain", lines[4])
	assert.Equal(t, "--- FULL DATABASE END ---", lines[5])
}

func TestDatasetService_FullContext_Empty(t *testing.T) {
	svc := NewDatasetService(memory.NewMovementStore(), nil, nil, nil, domain.ServerSettings{})

	out, err := svc.FullContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Database is empty.", out)
}

func TestDatasetService_FullContext_TruncatesDescriptions(t *testing.T) {
	store := memory.NewMovementStore()
	require.NoError(t, store.SaveMovements(context.Background(), []domain.Movement{
		{ID: "1", Name: "Long", Year: "2020", Description: strings.Repeat("é", 400)},
	}))
	svc := NewDatasetService(store, nil, nil, nil, domain.ServerSettings{})

	out, err := svc.FullContext(context.Background())
	require.NoError(t, err)

	row := strings.Split(out, "\n")[2]
	desc := row[strings.LastIndex(row, "|")+1:]
	assert.Len(t, desc, 500)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in       string
		expected int64
	}{
		{"12,400", 12400},
		{"3.2e4", 32000},
		{" 7 ", 7},
		{"", 0},
		{"unknown", 0},
		{"-5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCount(tt.in))
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
