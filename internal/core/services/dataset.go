package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// Ensure DatasetService implements the interface.
var _ driving.DatasetService = (*DatasetService)(nil)

// fullContextDescriptionBytes bounds each description in the full-database table.
const fullContextDescriptionBytes = 500

// errNoVectors means semantic search cannot run because nothing was embedded
// with the configured model.
var errNoVectors = errors.New("no stored embeddings")

// DatasetService serves the movement dataset.
//
// With an embedding service configured, non-empty queries are matched by
// cosine similarity against stored movement vectors; non-ASCII queries are
// first translated to English keywords when an LLM is available. Keyword
// search is the fallback whenever semantic search cannot answer.
type DatasetService struct {
	store            driven.MovementStore
	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
	prompts          driven.PromptStore
	topLimit         int
	threshold        float64
}

// NewDatasetService creates a new dataset service.
// The embeddingService, llmService and prompts parameters are optional (can be nil).
func NewDatasetService(
	store driven.MovementStore,
	embeddingService driven.EmbeddingService,
	llmService driven.LLMService,
	prompts driven.PromptStore,
	settings domain.ServerSettings,
) *DatasetService {
	defaults := domain.DefaultAppSettings().Server
	if settings.TopLimit <= 0 {
		settings.TopLimit = defaults.TopLimit
	}
	if settings.SimilarityThreshold <= 0 {
		settings.SimilarityThreshold = defaults.SimilarityThreshold
	}
	return &DatasetService{
		store:            store,
		embeddingService: embeddingService,
		llmService:       llmService,
		prompts:          prompts,
		topLimit:         settings.TopLimit,
		threshold:        settings.SimilarityThreshold,
	}
}

// Search returns up to the top limit of movements for query.
func (s *DatasetService) Search(ctx context.Context, query string) ([]domain.Movement, error) {
	query = strings.TrimSpace(query)
	logger.Debug("dataset: search %q", query)

	if query == "" {
		results, err := s.store.TopMovements(ctx, s.topLimit)
		if err != nil {
			return nil, fmt.Errorf("top movements: %w", err)
		}
		return nonNil(results), nil
	}

	if s.embeddingService != nil {
		results, err := s.semanticSearch(ctx, query)
		if err == nil {
			logger.Info("dataset: semantic search for %q returned %d results", query, len(results))
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("dataset: semantic search failed, falling back to keyword: %v", err)
	}

	results, err := s.store.SearchMovements(ctx, query, s.topLimit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	logger.Info("dataset: keyword search for %q returned %d results", query, len(results))
	return nonNil(results), nil
}

// semanticSearch ranks stored vectors by cosine similarity to the query.
func (s *DatasetService) semanticSearch(ctx context.Context, query string) ([]domain.Movement, error) {
	vectors, err := s.store.Embeddings(ctx, s.embeddingService.ModelName())
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errNoVectors
	}

	searchQuery := s.translateQuery(ctx, query)
	queryVec, err := s.embeddingService.Embed(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		id    string
		score float64
	}
	hits := make([]scored, 0, len(vectors))
	for id, vec := range vectors {
		score := cosineSimilarity(queryVec, vec)
		if score < s.threshold {
			continue
		}
		hits = append(hits, scored{id: id, score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > s.topLimit {
		hits = hits[:s.topLimit]
	}

	results := make([]domain.Movement, 0, len(hits))
	for _, hit := range hits {
		m, err := s.store.GetMovement(ctx, hit.id)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("dataset: vector for unknown movement %s", hit.id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get movement %s: %w", hit.id, err)
		}
		similarity := math.Round(hit.score*1000) / 10
		m.Similarity = &similarity
		results = append(results, *m)
	}
	return results, nil
}

// translateQuery turns a non-ASCII query into English keywords. Any failure
// keeps the original query.
func (s *DatasetService) translateQuery(ctx context.Context, query string) string {
	if isASCII(query) || s.llmService == nil || s.prompts == nil {
		return query
	}
	prompt, err := s.prompts.Load(driven.PromptQueryTranslate)
	if err != nil {
		logger.Warn("dataset: load translation prompt: %v", err)
		return query
	}
	translated, err := s.llmService.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: prompt},
		{Role: "user", Content: query},
	}, driven.ChatOptions{MaxTokens: 64})
	if err != nil {
		logger.Warn("dataset: translation failed, using original query: %v", err)
		return query
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return query
	}
	logger.Debug("dataset: translated %q to %q", query, translated)
	return translated
}

// Get retrieves one movement.
func (s *DatasetService) Get(ctx context.Context, id string) (*domain.Movement, error) {
	id = domain.NormaliseID(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty movement id", domain.ErrInvalidInput)
	}
	return s.store.GetMovement(ctx, id)
}

// Count returns the number of stored movements.
func (s *DatasetService) Count(ctx context.Context) (int, error) {
	return s.store.CountMovements(ctx)
}

// Import reads a JSON array of movements and stores them. When an embedding
// service is configured the imported movements are embedded as well; an
// embedding failure is logged and does not fail the import.
func (s *DatasetService) Import(ctx context.Context, r io.Reader) (int, error) {
	var records []movementRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("%w: decode movements: %w", domain.ErrInvalidInput, err)
	}

	movements := make([]domain.Movement, 0, len(records))
	for i := range records {
		m, err := records[i].toMovement()
		if err != nil {
			return 0, fmt.Errorf("%w: record %d: %w", domain.ErrInvalidInput, i, err)
		}
		movements = append(movements, m)
	}

	if err := s.store.SaveMovements(ctx, movements); err != nil {
		return 0, fmt.Errorf("save movements: %w", err)
	}
	logger.Info("dataset: imported %d movements", len(movements))

	if s.embeddingService != nil && len(movements) > 0 {
		if err := s.embed(ctx, movements); err != nil {
			logger.Warn("dataset: embedding imported movements failed: %v", err)
		}
	}
	return len(movements), nil
}

func (s *DatasetService) embed(ctx context.Context, movements []domain.Movement) error {
	texts := make([]string, len(movements))
	for i := range movements {
		texts[i] = movements[i].EmbeddingText()
	}
	vecs, err := s.embeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(movements) {
		return fmt.Errorf("got %d embeddings for %d movements", len(vecs), len(movements))
	}

	vectors := make(map[string][]float32, len(movements))
	for i := range movements {
		vectors[movements[i].ID] = vecs[i]
	}
	model := s.embeddingService.ModelName()
	if err := s.store.SaveEmbeddings(ctx, model, vectors); err != nil {
		return err
	}
	logger.Info("dataset: stored %d embeddings (%s)", len(vectors), model)
	return nil
}

// FullContext renders every movement as one pipe-delimited row, most recent
// year first.
func (s *DatasetService) FullContext(ctx context.Context) (string, error) {
	movements, err := s.store.ListMovements(ctx)
	if err != nil {
		return "", fmt.Errorf("list movements: %w", err)
	}
	if len(movements) == 0 {
		return "Database is empty.", nil
	}

	var b strings.Builder
	b.WriteString("--- FULL DATABASE START ---\n")
	b.WriteString("ID|Name|Year|Region|Category|Tweets|Duration|Reoccurrence|Impact|Offline|Participants|Outcome|Description\n")
	for i := range movements {
		m := &movements[i]
		fields := []string{
			m.ID,
			cell(m.Name),
			m.Year,
			m.Region,
			m.Category(),
			strconv.FormatInt(m.Tweets, 10),
			m.LengthDays,
			m.Reoccurrence,
			m.TwitterPenetration,
			m.OfflinePresence,
			cell(m.Participants),
			cell(m.Outcome),
			cell(truncateBytes(m.Description, fullContextDescriptionBytes)),
		}
		b.WriteString(strings.Join(fields, "|"))
		b.WriteByte('\n')
	}
	b.WriteString("--- FULL DATABASE END ---\n")
	return b.String(), nil
}

// movementRecord is the import shape. Spreadsheet exports carry numeric IDs
// and years, so those fields accept both JSON numbers and strings.
type movementRecord struct {
	domain.Movement
	ID     flexString `json:"id"`
	Year   flexString `json:"year"`
	Tweets flexString `json:"tweets"`
	Stars  flexString `json:"star_rating"`
}

func (r *movementRecord) toMovement() (domain.Movement, error) {
	m := r.Movement
	m.ID = domain.NormaliseID(string(r.ID))
	if m.ID == "" {
		return domain.Movement{}, errors.New("missing id")
	}
	m.Year = domain.NormaliseID(string(r.Year))
	m.Similarity = nil
	m.StarRating = int(parseCount(string(r.Stars)))

	switch {
	case r.Tweets != "":
		m.Tweets = parseCount(string(r.Tweets))
	case m.TweetsCount != "":
		m.Tweets = parseCount(m.TweetsCount)
	}
	if m.TweetsCount == "" && m.Tweets > 0 {
		m.TweetsCount = strconv.FormatInt(m.Tweets, 10)
	}
	return m, nil
}

// flexString decodes a JSON string or number into its string form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// parseCount reads counts such as "12,400" or "3.2e4". Unparseable input is zero.
func parseCount(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// cell makes free text safe for a pipe-delimited row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "/")
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nonNil(movements []domain.Movement) []domain.Movement {
	if movements == nil {
		return []domain.Movement{}
	}
	return movements
}
