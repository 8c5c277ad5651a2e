package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
)

// Ensure MovementStore implements the interface.
var _ driven.MovementStore = (*MovementStore)(nil)

// MovementStore is an in-memory implementation of driven.MovementStore.
type MovementStore struct {
	mu         sync.RWMutex
	movements  map[string]domain.Movement
	embeddings map[string]map[string][]float32
}

// NewMovementStore creates a new in-memory movement store.
func NewMovementStore() *MovementStore {
	return &MovementStore{
		movements:  make(map[string]domain.Movement),
		embeddings: make(map[string]map[string][]float32),
	}
}

// SaveMovements inserts or replaces movements by ID.
func (s *MovementStore) SaveMovements(_ context.Context, movements []domain.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range movements {
		m := movements[i]
		m.Tags = append([]string(nil), m.Tags...)
		m.Similarity = nil
		s.movements[m.ID] = m
	}
	return nil
}

// GetMovement retrieves a movement by ID.
func (s *MovementStore) GetMovement(_ context.Context, id string) (*domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movements[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

// ListMovements returns every movement, most recent year first.
func (s *MovementStore) ListMovements(_ context.Context) ([]domain.Movement, error) {
	all := s.snapshot()
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Year != all[j].Year {
			return all[i].Year > all[j].Year
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

// TopMovements returns up to limit movements ordered by tweet volume.
func (s *MovementStore) TopMovements(_ context.Context, limit int) ([]domain.Movement, error) {
	return limitTo(byTweets(s.snapshot()), limit), nil
}

// SearchMovements returns up to limit movements containing query in a text field.
func (s *MovementStore) SearchMovements(_ context.Context, query string, limit int) ([]domain.Movement, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	var matches []domain.Movement
	for _, m := range s.snapshot() {
		if matchesMovement(&m, needle) {
			matches = append(matches, m)
		}
	}
	return limitTo(byTweets(matches), limit), nil
}

// CountMovements returns the number of stored movements.
func (s *MovementStore) CountMovements(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movements), nil
}

// SaveEmbeddings stores vectors produced by model.
func (s *MovementStore) SaveEmbeddings(_ context.Context, model string, vectors map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.embeddings[model]
	if !ok {
		byID = make(map[string][]float32, len(vectors))
		s.embeddings[model] = byID
	}
	for id, vec := range vectors {
		byID[id] = append([]float32(nil), vec...)
	}
	return nil
}

// Embeddings returns every stored vector produced by model.
func (s *MovementStore) Embeddings(_ context.Context, model string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32, len(s.embeddings[model]))
	for id, vec := range s.embeddings[model] {
		out[id] = append([]float32(nil), vec...)
	}
	return out, nil
}

func (s *MovementStore) snapshot() []domain.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Movement, 0, len(s.movements))
	for _, m := range s.movements {
		out = append(out, m)
	}
	return out
}

func matchesMovement(m *domain.Movement, needle string) bool {
	fields := []string{m.Name, m.Hashtag, m.Description, m.Region, m.Year, m.Category()}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func byTweets(movements []domain.Movement) []domain.Movement {
	sort.SliceStable(movements, func(i, j int) bool {
		if movements[i].Tweets != movements[j].Tweets {
			return movements[i].Tweets > movements[j].Tweets
		}
		return movements[i].ID < movements[j].ID
	})
	return movements
}

func limitTo(movements []domain.Movement, limit int) []domain.Movement {
	if limit > 0 && len(movements) > limit {
		movements = movements[:limit]
	}
	if movements == nil {
		return []domain.Movement{}
	}
	return movements
}
